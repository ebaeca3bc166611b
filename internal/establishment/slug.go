package establishment

import (
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// normalizeTurkish: Türkçe karakterleri ASCII karşılıklarına çevirir
// Örn: "Çınaraltı Köfte" -> "cinaralti kofte"
func normalizeTurkish(s string) string {
	replacements := map[rune]string{
		'ç': "c", 'Ç': "C",
		'ğ': "g", 'Ğ': "G",
		'ı': "i", 'İ': "I",
		'ö': "o", 'Ö': "O",
		'ş': "s", 'Ş': "S",
		'ü': "u", 'Ü': "U",
	}

	var result strings.Builder
	for _, r := range s {
		if replacement, ok := replacements[r]; ok {
			result.WriteString(replacement)
		} else {
			result.WriteRune(r)
		}
	}
	return strings.ToLower(result.String())
}

// Slugify: İşletme adından public menü anahtarı üretir
// Örn: "Çınaraltı Köfte & Izgara" -> "cinaralti-kofte-izgara"
func Slugify(name string) string {
	s := slugInvalidChars.ReplaceAllString(normalizeTurkish(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = strings.TrimRight(s[:100], "-")
	}
	return s
}

func ValidSlug(s string) bool {
	return len(s) <= 100 && slugPattern.MatchString(s)
}
