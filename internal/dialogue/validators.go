package dialogue

import (
	"strconv"
	"strings"
	"time"
)

// ValidBirthDate checks DD/MM/YYYY with day in [1,31], month in [1,12] and
// year in [1900, current year]. The day range is deliberately independent of
// the month, matching the behavior customers have always seen.
func ValidBirthDate(s string, now time.Time) bool {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return false
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}
	if day < 1 || day > 31 {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	if year < 1900 || year > now.Year() {
		return false
	}
	return true
}

// CleanPhone strips spaces, hyphens and plus signs from a phone number.
func CleanPhone(s string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "+", "")
	return replacer.Replace(strings.TrimSpace(s))
}

// ValidPhone cleans the input and reports whether what remains is all digits
// with at least 7 of them. Returns the cleaned number.
func ValidPhone(s string) (string, bool) {
	cleaned := CleanPhone(s)
	if len(cleaned) < 7 {
		return cleaned, false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return cleaned, false
		}
	}
	return cleaned, true
}

// ValidEmail checks for a syntactically plausible address: both '@' and '.'
// present, no spaces, and a local part before the '@'.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if !strings.Contains(s, ".") {
		return false
	}
	return true
}

func matchesAny(normalized string, words []string) bool {
	for _, w := range words {
		if strings.Contains(normalized, w) {
			return true
		}
	}
	return false
}

func equalsAny(normalized string, words []string) bool {
	for _, w := range words {
		if normalized == w {
			return true
		}
	}
	return false
}
