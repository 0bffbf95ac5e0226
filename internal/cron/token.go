package cron

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var numeral = regexp.MustCompile(`^-?\d+$`)

// resolveToken turns a numeral or a name from names into its value. The
// offset is added to name lookups only.
func resolveToken(tok string, names map[string]int, offset int) (int, bool) {
	if names != nil {
		if v, ok := names[strings.ToLower(tok)]; ok {
			return v + offset, true
		}
	}
	if !numeral.MatchString(tok) {
		return 0, false
	}
	// Atoi saturates on overflow, so huge numerals fail the range check.
	v, err := strconv.Atoi(tok)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}
