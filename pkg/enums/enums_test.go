package enums

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	got, err := ParsePaymentStatus("paid")
	if err != nil || got != PaymentStatusPaid {
		t.Fatalf("expected paid, got %q err=%v", got, err)
	}
	if _, err := ParsePaymentStatus("settled"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if PaymentStatus("bogus").IsValid() {
		t.Fatalf("bogus should not be valid")
	}
}

func TestParseFulfillmentStatus(t *testing.T) {
	got, err := ParseFulfillmentStatus("shipped")
	if err != nil || got != FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %q err=%v", got, err)
	}
	if _, err := ParseFulfillmentStatus(""); err == nil {
		t.Fatalf("expected error for empty status")
	}
	if !FulfillmentStatusDelivered.IsValid() {
		t.Fatalf("delivered should be valid")
	}
}

func TestParseCurrency(t *testing.T) {
	got, err := ParseCurrency(" inr ")
	if err != nil || got != CurrencyINR {
		t.Fatalf("expected INR, got %q err=%v", got, err)
	}
	if _, err := ParseCurrency("USD"); err == nil {
		t.Fatalf("expected USD to be rejected")
	}
}
