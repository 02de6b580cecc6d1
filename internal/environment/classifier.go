package environment

import (
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies an environment variable for display.
type Kind int

const (
	KindConfig Kind = iota
	KindSecret
	KindDatabase
	KindGenerated // nanoid, uuid, jwt or other random-looking value
	KindURL
	KindBoolean
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindSecret:
		return "secret"
	case KindDatabase:
		return "database"
	case KindGenerated:
		return "generated"
	case KindURL:
		return "url"
	case KindBoolean:
		return "boolean"
	case KindNumeric:
		return "numeric"
	default:
		return "config"
	}
}

var secretPatterns = []string{
	"secret", "key", "token", "password", "pass", "pwd",
	"auth", "credential", "private", "cert",
	"jwt", "session", "cookie", "salt", "signing",
}

var databasePatterns = []string{
	"database_url", "db_url", "dsn", "connection_string",
	"postgres_url", "mysql_url", "mongodb_url", "mongo_url", "redis_url",
}

// Classify returns the kind of a variable and whether its value must be
// masked when shown.
func Classify(name, value string) (Kind, bool) {
	lower := strings.ToLower(name)

	for _, p := range databasePatterns {
		if strings.Contains(lower, p) {
			return KindDatabase, true
		}
	}
	for _, p := range secretPatterns {
		if strings.Contains(lower, p) {
			return KindSecret, true
		}
	}
	if looksGenerated(value) {
		return KindGenerated, true
	}
	if strings.Contains(value, "://") && strings.Contains(value, "@") {
		// URL carrying credentials
		return KindDatabase, true
	}

	switch {
	case strings.HasPrefix(value, "http") || strings.Contains(lower, "url"):
		return KindURL, false
	case value == "true" || value == "false":
		return KindBoolean, false
	case isNumeric(value):
		return KindNumeric, false
	}
	return KindConfig, false
}

// Mask hides value, keeping a short prefix of long values for recognition.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= 8 {
		return "********"
	}
	return string(runes[:2]) + "******"
}

func looksGenerated(value string) bool {
	if len(value) < 16 {
		return false
	}
	if len(value) == 36 && strings.Count(value, "-") == 4 {
		return true
	}
	if strings.Count(value, ".") == 2 && len(value) > 50 {
		return true
	}
	return len(value) >= 20 && isURLSafe(value) && mixedCase(value) && hasDigit(value)
}

func isURLSafe(s string) bool {
	for _, r := range s {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func mixedCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
	}
	return upper && lower
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isNumeric(value string) bool {
	_, err := strconv.Atoi(value)
	return err == nil
}
