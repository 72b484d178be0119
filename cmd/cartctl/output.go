package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/flintflours/storefront-backend/internal/cartsync"
	"github.com/flintflours/storefront-backend/pkg/metrics"
	"github.com/flintflours/storefront-backend/pkg/pricing"
)

var statFamilies = []string{"cart_sync_calls_total", "cart_sync_coalesced_total", "cart_loads_total"}

func lineLabel(d cartsync.Display) string {
	switch {
	case d.ProductName != "" && d.VariantName != "":
		return d.ProductName + " (" + d.VariantName + ")"
	case d.ProductName != "":
		return d.ProductName
	default:
		return "item"
	}
}

func printCart(out io.Writer, lines []cartsync.Line) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "cart is empty")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQTY\tUNIT\tTOTAL\tPRODUCT\tVARIANT")
	total := decimal.Zero
	for _, line := range lines {
		unit := line.UnitPrice()
		lineTotal := pricing.LineTotal(unit, line.Quantity)
		total = total.Add(lineTotal)
		label := lineLabel(line.Display)
		if line.Unavailable() {
			label += " [unavailable]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", label, line.Quantity, unit.StringFixed(2), lineTotal.StringFixed(2), line.ProductID, line.VariantID)
	}
	fmt.Fprintf(tw, "\t\t\t%s\t\t\n", total.StringFixed(2))
	return tw.Flush()
}

func printStats(out io.Writer, g prometheus.Gatherer) error {
	for _, family := range statFamilies {
		samples, err := metrics.Counters(g, family)
		if err != nil {
			return err
		}
		for _, sample := range samples {
			fmt.Fprintf(out, "%s{%s} %g\n", family, sample.Labels, sample.Value)
		}
	}
	return nil
}
