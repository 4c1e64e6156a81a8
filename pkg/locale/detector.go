package locale

import "strings"

// RegionForPhone returns the region whose country prefix phone starts with,
// written as +996…, 00996… or 996…. Local numbers such as 0555… report false.
func RegionForPhone(phone string) (string, bool) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "00") {
		p = p[2:]
	}
	if p == "" || p[0] == '0' {
		return "", false
	}

	for code, country := range Countries {
		for _, prefix := range country.PhonePrefixes {
			if strings.HasPrefix(p, strings.TrimPrefix(prefix, "+")) {
				return code, true
			}
		}
	}
	return "", false
}
