package cron

// Domain is the closed value interval of one field position.
type Domain struct {
	Name  string
	Min   int
	Max   int
	Names map[string]int

	// SundaySeven maps a resolved 7 to 0 before range checks.
	SundaySeven bool
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// Field domains, in expression order.
var (
	MinuteDomain     = Domain{Name: "minute", Min: 0, Max: 59}
	HourDomain       = Domain{Name: "hour", Min: 0, Max: 23}
	DayOfMonthDomain = Domain{Name: "day-of-month", Min: 1, Max: 31}
	MonthDomain      = Domain{Name: "month", Min: 1, Max: 12, Names: monthNames}
	DayOfWeekDomain  = Domain{Name: "day-of-week", Min: 0, Max: 6, Names: dayNames, SundaySeven: true}
)

var domains = [fieldCount]Domain{
	MinuteDomain,
	HourDomain,
	DayOfMonthDomain,
	MonthDomain,
	DayOfWeekDomain,
}

func (d Domain) full() FieldSet {
	s := make(FieldSet, d.Max-d.Min+1)
	for v := d.Min; v <= d.Max; v++ {
		s[v] = struct{}{}
	}
	return s
}
