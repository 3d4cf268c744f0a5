package suppliers

import "strings"

// Partners that predate the supplier master data and still lack an email row.
var fallbackEmails = map[string]string{
	"SUP-001": "sales@pacific-provisions.example.com",
	"SUP-002": "orders@yokohama-ship-supply.example.jp",
	"SUP-003": "quotes@meridian-chandlers.example.com",
	"SUP-010": "desk@harborline-foods.example.com",
}

func FallbackEmail(id, name string) string {
	if addr, ok := fallbackEmails[id]; ok {
		return addr
	}
	slug := emailSlug(id)
	if slug == "" {
		slug = emailSlug(name)
	}
	if slug == "" {
		slug = "supplier"
	}
	return slug + "@suppliers.chandlery.local"
}

func emailSlug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
