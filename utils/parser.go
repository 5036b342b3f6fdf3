package utils

import (
	"regexp"
	"strconv"
	"strings"
)

// goodsNoRegex matches the localized "货号" label with either a half-width or a
// full-width colon and captures the code after it.
var goodsNoRegex = regexp.MustCompile(`货号[:：]\s*(.+)$`)

// ParseGoodsNo strips the label prefix from a raw goods-number field.
// Text without the label is returned trimmed but otherwise unchanged.
func ParseGoodsNo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if m := goodsNoRegex.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

// indicatorRegex finds "current / total" in a pagination display like "3/12".
var indicatorRegex = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

// ParsePageIndicator extracts (current, total) from the pagination display.
// ok is false when the text carries no such pair.
func ParsePageIndicator(text string) (current, total int, ok bool) {
	m := indicatorRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	current, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return current, total, true
}

// ParsePageNumber reads a page control label such as " 7 ".
func ParsePageNumber(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
