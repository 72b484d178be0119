package address

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/flintflours/storefront-backend/pkg/db"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

var (
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]DTO, error)
	Get(ctx context.Context, userID, addressID uuid.UUID) (*DTO, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*DTO, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*DTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]DTO, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "list addresses")
	}
	out := make([]DTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, addressID uuid.UUID) (*DTO, error) {
	row, err := s.load(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*DTO, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "authentication required")
	}
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}
	row := input.model()
	row.UserID = userID
	if err := s.repo.Create(ctx, &row); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "create address")
	}
	dto := toDTO(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*DTO, error) {
	existing, err := s.load(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}
	row := input.model()
	row.ID = existing.ID
	row.UserID = existing.UserID
	row.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &row); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "update address")
	}
	dto := toDTO(row)
	return &dto, nil
}

func (s *service) load(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "authentication required")
	}
	if addressID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "address id is required")
	}
	row, err := s.repo.FindForUser(ctx, userID, addressID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "address not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "load address")
	}
	return row, nil
}

// Input carries the editable address fields.
type Input struct {
	Label   *string
	Line1   string
	City    string
	State   string
	Pincode string
	Phone   string
}

func (in Input) normalized() Input {
	if in.Label != nil {
		label := strings.TrimSpace(*in.Label)
		if label == "" {
			in.Label = nil
		} else {
			in.Label = &label
		}
	}
	in.Line1 = strings.TrimSpace(in.Line1)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in Input) validate() error {
	fields := map[string]string{}
	if in.Line1 == "" {
		fields["line1"] = "is required"
	}
	if in.City == "" {
		fields["city"] = "is required"
	}
	if in.State == "" {
		fields["state"] = "is required"
	}
	if !pincodePattern.MatchString(in.Pincode) {
		fields["pincode"] = "must be 6 digits and not start with 0"
	}
	if !phonePattern.MatchString(in.Phone) {
		fields["phone"] = "must be exactly 10 digits"
	}
	if len(fields) > 0 {
		return errors.New(errors.CodeValidation, "invalid address").WithDetails(fields)
	}
	return nil
}

func (in Input) model() models.Address {
	return models.Address{
		Label:   in.Label,
		Line1:   in.Line1,
		City:    in.City,
		State:   in.State,
		Pincode: in.Pincode,
		Phone:   in.Phone,
	}
}
