package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 15
)

// NormalizePhone converts phone to E.164. A number without an international
// prefix is read in the first region that parses it, so a local "0555123456"
// with region KG becomes "+996555123456". Unparseable input yields "".
func NormalizePhone(phone string, regions ...string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "00") {
		phone = "+" + strings.TrimPrefix(phone, "00")
	}

	for _, region := range regions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// PhoneDigits counts the digits of a normalized number, country code included.
func PhoneDigits(phone string) int {
	n := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ValidPhone reports whether phone is E.164 with 10 to 15 digits.
func ValidPhone(phone string) bool {
	if !strings.HasPrefix(phone, "+") {
		return false
	}
	digits := PhoneDigits(phone)
	return digits == len(phone)-1 && digits >= MinPhoneDigits && digits <= MaxPhoneDigits
}

// MaskPhone hides all but the last four characters, for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
