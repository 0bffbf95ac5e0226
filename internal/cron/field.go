package cron

import (
	"sort"
	"strconv"
	"strings"
)

// FieldSet holds every value of one field that satisfies the expression.
type FieldSet map[int]struct{}

// Has reports whether v is in the set.
func (s FieldSet) Has(v int) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of values in the set.
func (s FieldSet) Len() int { return len(s) }

// Values returns the members in ascending order.
func (s FieldSet) Values() []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Equal reports set equality.
func (s FieldSet) Equal(o FieldSet) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// parseField parses one whitespace-free field into its value set.
func parseField(field string, d Domain) (FieldSet, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, newError(KindMissingField, field, "missing field")
	}
	if field == "*" {
		return d.full(), nil
	}

	out := make(FieldSet)
	for _, part := range strings.Split(field, ",") {
		values, err := expandPart(strings.TrimSpace(part), d)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			out[v] = struct{}{}
		}
	}
	return out, nil
}

// expandPart expands one list item: *, */n, a, a-b or a-b/n.
func expandPart(part string, d Domain) ([]int, error) {
	rangePart, stepPart, hasStep := strings.Cut(part, "/")

	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepPart)
		if err != nil || n <= 0 {
			return nil, newError(KindInvalidStep, part, "invalid step: %s", part)
		}
		step = n
	}

	if rangePart == "*" {
		var out []int
		for v := d.Min; v <= d.Max; v += step {
			out = append(out, v)
		}
		return out, nil
	}

	start, end, ok := resolveRange(rangePart, d.Names)
	if !ok {
		return nil, newError(KindInvalidToken, part, "invalid token: %s", part)
	}

	if d.SundaySeven {
		if start == 7 {
			start = 0
		}
		if end == 7 {
			end = 0
		}
	}

	if start < d.Min || start > d.Max || end < d.Min || end > d.Max {
		return nil, newError(KindOutOfRange, part, "out of range: %s (allowed %d-%d)", part, d.Min, d.Max)
	}

	var out []int
	if end >= start {
		for v := start; v <= end; v++ {
			if (v-start)%step == 0 {
				out = append(out, v)
			}
		}
		return out, nil
	}

	// Wraparound, e.g. fri-mon. The second segment aligns on
	// v+(max-start+1), which for step > 1 does not always continue the
	// progression of the first segment.
	for v := start; v <= d.Max; v++ {
		if (v-start)%step == 0 {
			out = append(out, v)
		}
	}
	for v := d.Min; v <= end; v++ {
		if (v+(d.Max-start+1))%step == 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

func resolveRange(s string, names map[string]int) (start, end int, ok bool) {
	if !strings.Contains(s, "-") {
		v, ok := resolveToken(s, names, 0)
		return v, v, ok
	}
	bounds := strings.Split(s, "-")
	if len(bounds) != 2 {
		return 0, 0, false
	}
	if start, ok = resolveToken(bounds[0], names, 0); !ok {
		return 0, 0, false
	}
	if end, ok = resolveToken(bounds[1], names, 0); !ok {
		return 0, 0, false
	}
	return start, end, true
}
