package utils

import (
	"regexp"
	"strings"
)

var spaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and folds every whitespace run into a single space.
// Console cells are rendered with line breaks and non-breaking spaces between
// the label and the value.
func CollapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// RowKey joins a title and a code into the key used to detect that the first
// table row changed after paging.
func RowKey(title, code string) string {
	return title + "||" + code
}
