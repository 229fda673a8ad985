package model

import (
	"strings"

	"github.com/gosimple/slug"
)

// Slug turns a display name into an identifier usable in topics and ids.
func Slug(name string) string {
	return strings.Replace(slug.Make(name), "-", "_", -1)
}
