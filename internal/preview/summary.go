package preview

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	runLayout     = "Mon, 02 Jan 2006 15:04"
	summaryLayout = "Mon Jan 2 2006 15:04"
	clockLayout   = "15:04"
)

// Summarize describes an expression in one sentence. Expressions that fix
// minute and hour and leave the three date fields as "*" read "At HH:MM
// every day."; anything else names the first run and its zone.
func Summarize(expr string, runs []time.Time, loc *time.Location) string {
	parts := strings.Fields(expr)
	if len(parts) != 5 || len(runs) == 0 {
		return ""
	}
	m, h, dom, mon, dow := parts[0], parts[1], parts[2], parts[3], parts[4]

	if dom == "*" && mon == "*" && dow == "*" && h != "*" && m != "*" {
		return fmt.Sprintf("At %s every day.", runs[0].Format(clockLayout))
	}
	return fmt.Sprintf("Next run is %s (%s).", runs[0].Format(summaryLayout), loc)
}

// FormatRun renders one run for a list, e.g. "Tue, 05 Mar 2024 04:05".
func FormatRun(t time.Time) string {
	return t.Format(runLayout)
}

func clockTime(runs []time.Time) string {
	if len(runs) == 0 {
		return "--:--"
	}
	return runs[0].Format(clockLayout)
}

// Random returns a daily expression "m h * * *" at a random minute and
// hour. A nil r uses the global source.
func Random(r *rand.Rand) string {
	if r == nil {
		return fmt.Sprintf("%d %d * * *", rand.IntN(60), rand.IntN(24))
	}
	return fmt.Sprintf("%d %d * * *", r.IntN(60), r.IntN(24))
}
