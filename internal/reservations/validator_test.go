package reservations

import (
	"testing"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/model"
)

func TestNormalize_GuestPhoneRegion(t *testing.T) {
	tests := []struct {
		name   string
		region string
		phone  string
		want   string
	}{
		{"local number uses default region", "KG", "0555 123 456", "+996555123456"},
		{"country prefix without plus", "KZ", "996555123456", "+996555123456"},
		{"double zero prefix", "KZ", "00996555123456", "+996555123456"},
		{"international number", "KG", "+77011234567", "+77011234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewIntentValidator(tt.region, logger.Discard())
			intent := model.ReservationIntent{Guest: &model.GuestContact{Name: "Aigul", Phone: tt.phone}}

			v.Normalize(&intent)
			if intent.Guest.Phone != tt.want {
				t.Errorf("phone = %q, want %q", intent.Guest.Phone, tt.want)
			}
		})
	}
}

func TestValidate_PhoneLengthBounds(t *testing.T) {
	v := NewIntentValidator("KG", logger.Discard())
	intent := func(phone string) *model.ReservationIntent {
		return &model.ReservationIntent{
			BusinessID: "b1",
			ServiceID:  "svc",
			StaffID:    "s1",
			BranchID:   "br",
			StartAt:    slotStart,
			Guest:      &model.GuestContact{Name: "Aigul", Phone: phone},
		}
	}

	if err := v.Validate(intent("+123456789012345")); err != nil {
		t.Errorf("15 digits rejected: %v", err)
	}
	if err := v.Validate(intent("+1234567890123456")); err == nil {
		t.Error("16 digits accepted")
	}
	if err := v.Validate(intent("+123456789")); err == nil {
		t.Error("9 digits accepted")
	}
}
