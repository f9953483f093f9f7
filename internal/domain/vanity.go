package domain

import (
	"regexp"
	"strings"
)

const VanityURLPattern = `^[a-z0-9]{3,32}$`

var vanityURLRx = regexp.MustCompile(VanityURLPattern)

// NormalizeVanityURL trims and lowercases a vanity url. It does not validate.
func NormalizeVanityURL(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ValidVanityURL reports whether the already normalized value matches VanityURLPattern.
func ValidVanityURL(value string) bool {
	return vanityURLRx.MatchString(value)
}
