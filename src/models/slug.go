package models

import (
	"regexp"
	"strings"
)

var reSlugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)
var reSlugDashes = regexp.MustCompile(`-+`)

// DeriveSlug turns a human-readable name into a URL-safe slug. Called at
// validation time whenever an entity with a name but no explicit slug is
// saved.
func DeriveSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(
		"ä", "ae",
		"ö", "oe",
		"ü", "ue",
		"ß", "ss",
	).Replace(slug)
	slug = reSlugUnsafe.ReplaceAllString(slug, "-")
	slug = reSlugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
