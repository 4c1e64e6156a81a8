package reservations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "slotkeeper/pkg/errors"
	"slotkeeper/pkg/locale"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
	"slotkeeper/pkg/sanitizer"
)

type IntentValidator struct {
	validate    *validator.Validate
	phoneRegion string
	logger      *logger.Logger
}

func NewIntentValidator(phoneRegion string, log *logger.Logger) *IntentValidator {
	v := validator.New()

	if err := v.RegisterValidation("guest_phone", validateGuestPhone); err != nil {
		log.Fatal("Failed to register 'guest_phone' validator",
			"error", err,
		)
	}

	return &IntentValidator{
		validate:    v,
		phoneRegion: phoneRegion,
		logger:      log,
	}
}

func validateGuestPhone(fl validator.FieldLevel) bool {
	return sanitizer.ValidPhone(fl.Field().String())
}

// Normalize trims the guest contact and converts the phone to E.164 in the
// default region. It must run before Validate.
func (v *IntentValidator) Normalize(intent *model.ReservationIntent) {
	intent.BusinessID = strings.TrimSpace(intent.BusinessID)
	intent.ServiceID = strings.TrimSpace(intent.ServiceID)
	intent.StaffID = strings.TrimSpace(intent.StaffID)
	intent.BranchID = strings.TrimSpace(intent.BranchID)
	intent.UserID = strings.TrimSpace(intent.UserID)

	if intent.Guest == nil {
		return
	}
	guest := *intent.Guest
	guest.Name = sanitizer.NormalizeName(guest.Name)
	guest.Email = sanitizer.NormalizeEmail(guest.Email)
	if normalized := sanitizer.NormalizePhone(guest.Phone, v.phoneRegions(guest.Phone)...); normalized != "" {
		guest.Phone = normalized
	}
	intent.Guest = &guest
}

// phoneRegions tries the region of a recognized country prefix before the
// default, so "996555123456" parses as Kyrgyz even when the business is in
// Kazakhstan.
func (v *IntentValidator) phoneRegions(phone string) []string {
	if region, ok := locale.RegionForPhone(phone); ok && region != v.phoneRegion {
		return []string{region, v.phoneRegion}
	}
	return []string{v.phoneRegion}
}

// Validate checks a normalized intent. Guest contact rules apply only when
// there is no authenticated user.
func (v *IntentValidator) Validate(intent *model.ReservationIntent) error {
	details := map[string]any{}

	if err := v.validate.Struct(intent); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return apperrors.Validation("Invalid reservation", map[string]any{"error": err.Error()})
		}
		for _, fe := range validationErrs {
			if strings.HasPrefix(fe.Namespace(), "ReservationIntent.Guest.") && !intent.IsGuest() {
				continue
			}
			details[jsonField(fe)] = messageFor(fe)
		}
	}
	if intent.StartAt.IsZero() {
		details["start_at"] = "is required"
	}
	if intent.IsGuest() && intent.Guest == nil {
		details["guest"] = "contact details are required without a signed-in user"
	}

	if len(details) > 0 {
		v.logger.Debug("Reservation intent rejected", "details", details)
		return apperrors.Validation("Invalid reservation", details)
	}
	return nil
}

func jsonField(fe validator.FieldError) string {
	switch fe.Field() {
	case "BusinessID":
		return "business_id"
	case "ServiceID":
		return "service_id"
	case "StaffID":
		return "staff_id"
	case "BranchID":
		return "branch_id"
	case "StartAt":
		return "start_at"
	case "Name":
		return "guest.name"
	case "Phone":
		return "guest.phone"
	case "Email":
		return "guest.email"
	default:
		return strings.ToLower(fe.Field())
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "ne":
		return "must be a specific staff member"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "guest_phone":
		return fmt.Sprintf("must be a valid phone number with %d to %d digits", sanitizer.MinPhoneDigits, sanitizer.MaxPhoneDigits)
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
