package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWorkKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty input unchanged", "", ""},
		{"bare work id gains prefix", "OL27448W", "/works/OL27448W"},
		{"single digit id", "OL1W", "/works/OL1W"},
		{"already canonical unchanged", "/works/OL27448W", "/works/OL27448W"},
		{"edition id unchanged", "OL7M", "OL7M"},
		{"author id unchanged", "OL23919A", "OL23919A"},
		{"missing digits unchanged", "OLW", "OLW"},
		{"lowercase unchanged", "ol27448w", "ol27448w"},
		{"foreign id unchanged", "isbn:9780441172719", "isbn:9780441172719"},
		{"trailing garbage unchanged", "OL27448Wx", "OL27448Wx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWorkKey(tt.in))
		})
	}
}

func TestNormalizeWorkKeyIdempotent(t *testing.T) {
	inputs := []string{"", "OL27448W", "/works/OL27448W", "OL7M", "whatever"}
	for _, in := range inputs {
		once := NormalizeWorkKey(in)
		assert.Equal(t, once, NormalizeWorkKey(once), "input %q", in)
	}
}
