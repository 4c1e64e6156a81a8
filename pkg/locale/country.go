package locale

import (
	"strings"
)

const DefaultRegion = "KG"

type Country struct {
	Code            string   // ISO 3166-1 alpha-2 country code (e.g., "KG", "KZ")
	Name            string   // Human-readable country name
	PhonePrefixes   []string // Valid phone number prefixes (e.g., ["+996", "996"])
	DefaultTimezone string   // IANA timezone identifier (e.g., "Asia/Bishkek")
}

var (
	Countries = map[string]Country{
		"KG": {
			Code:            "KG",
			Name:            "Kyrgyzstan",
			PhonePrefixes:   []string{"+996", "996"},
			DefaultTimezone: "Asia/Bishkek",
		},
		"KZ": {
			Code:            "KZ",
			Name:            "Kazakhstan",
			PhonePrefixes:   []string{"+77", "77"},
			DefaultTimezone: "Asia/Almaty",
		},
		"UZ": {
			Code:            "UZ",
			Name:            "Uzbekistan",
			PhonePrefixes:   []string{"+998", "998"},
			DefaultTimezone: "Asia/Tashkent",
		},
	}

	TimeZoneTags = map[string][]string{
		"KG": {"Asia/Bishkek", "Asia/Frunze"},
		"KZ": {"Asia/Almaty", "Asia/Astana", "Asia/Qostanay"},
		"UZ": {"Asia/Tashkent", "Asia/Samarkand"},
	}
)

// DetectRegion maps an IANA zone to the phone region used for local numbers.
func DetectRegion(tz string) string {
	for region, zones := range TimeZoneTags {
		for _, z := range zones {
			if strings.EqualFold(tz, z) {
				return region
			}
		}
	}
	return DefaultRegion
}
