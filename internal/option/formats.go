package option

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
)

var booleanPattern = regexp.MustCompile(`(?i)^(true|false|0|1)$`)

func builtinFormats() map[string]FormatFunc {
	return map[string]FormatFunc{
		"date":     layout(time.DateOnly),
		"time":     anyOf(layout(time.TimeOnly), layout("15:04"), jsonFormat("time")),
		"datetime": anyOf(jsonFormat("date-time"), layout(time.DateTime)),
		"duration": jsonFormat("duration"),
		"email":    jsonFormat("email"),
		"password": password,
		"uuid":     isUUID,
		"boolean":  booleanPattern.MatchString,
		"hostname": jsonFormat("hostname"),
		"ipv4":     jsonFormat("ipv4"),
		"ipv6":     jsonFormat("ipv6"),
		"uri":      jsonFormat("uri"),
		"semver":   isSemver,
	}
}

// jsonFormat reuses a JSON Schema format checker.
func jsonFormat(name string) FormatFunc {
	check := jsonschema.Formats[name]
	return func(s string) bool {
		return check != nil && check(s)
	}
}

func layout(l string) FormatFunc {
	return func(s string) bool {
		_, err := time.Parse(l, s)
		return err == nil
	}
}

func anyOf(fns ...FormatFunc) FormatFunc {
	return func(s string) bool {
		for _, fn := range fns {
			if fn(s) {
				return true
			}
		}
		return false
	}
}

// password requires 8 to 16 letters and digits with at least one lower-case
// letter, one upper-case letter and one digit.
func password(s string) bool {
	if len(s) < 8 || len(s) > 16 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			return false
		}
	}
	return lower && upper && digit
}

// isUUID accepts only the canonical 36 character form.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// isSemver accepts versions with or without the leading "v".
func isSemver(s string) bool {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return semver.IsValid(s)
}
