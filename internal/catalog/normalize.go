package catalog

import (
	"regexp"
	"strings"
)

var bareWorkID = regexp.MustCompile(`^OL\d+W$`)

// NormalizeWorkKey rewrites a bare OpenLibrary work id (OL12345W) into its
// canonical "/works/OL12345W" form. Already-canonical keys pass through
// unchanged, and so does anything that does not look like a work id: foreign
// identifiers are not an error here, they are just left alone. The function
// is total and idempotent.
func NormalizeWorkKey(key string) string {
	if key == "" {
		return key
	}
	if strings.HasPrefix(key, "/works/") {
		return key
	}
	if bareWorkID.MatchString(key) {
		return "/works/" + key
	}
	return key
}
