package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression. Each field is a bit set of
// the matching values (bit n set means value n matches).
type CronExpr struct {
	minutes  uint64
	hours    uint32
	days     uint32
	months   uint16
	weekdays uint8
}

var aliases = map[string]string{
	"@hourly":  "0 * * * *",
	"@daily":   "0 0 * * *",
	"@weekly":  "0 0 * * 0",
	"@monthly": "0 0 1 * *",
}

// ParseCron parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week) or one of the @hourly,
// @daily, @weekly, @monthly aliases. Day-of-week accepts 0-7 with both 0
// and 7 meaning Sunday.
func ParseCron(expr string) (*CronExpr, error) {
	if alias, ok := aliases[strings.TrimSpace(expr)]; ok {
		expr = alias
	}
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minutes, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("minute field: %w", err)
	}
	hours, err := parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("hour field: %w", err)
	}
	days, err := parseField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("day-of-month field: %w", err)
	}
	months, err := parseField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("month field: %w", err)
	}
	weekdays, err := parseField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("day-of-week field: %w", err)
	}
	// 7 is an alias for Sunday
	if weekdays&(1<<7) != 0 {
		weekdays |= 1
		weekdays &^= 1 << 7
	}

	return &CronExpr{
		minutes:  minutes,
		hours:    uint32(hours),
		days:     uint32(days),
		months:   uint16(months),
		weekdays: uint8(weekdays),
	}, nil
}

// Matches reports whether t falls on the expression, at minute granularity.
func (c *CronExpr) Matches(t time.Time) bool {
	return c.minutes&(1<<t.Minute()) != 0 &&
		c.hours&(1<<t.Hour()) != 0 &&
		c.days&(1<<t.Day()) != 0 &&
		c.months&(1<<int(t.Month())) != 0 &&
		c.weekdays&(1<<int(t.Weekday())) != 0
}

// parseField parses one cron field into a bit set. Supports *, */step, n,
// n-m, n-m/step, and comma-separated combinations of those.
func parseField(field string, min, max int) (uint64, error) {
	var bits uint64
	for _, part := range strings.Split(field, ",") {
		lo, hi, step := min, max, 1

		rangePart := part
		if idx := strings.IndexByte(part, '/'); idx != -1 {
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return 0, fmt.Errorf("invalid step in %q", part)
			}
			step = s
			rangePart = part[:idx]
		}

		switch {
		case rangePart == "*":
			// full range
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			var err error
			if lo, err = strconv.Atoi(bounds[0]); err != nil {
				return 0, fmt.Errorf("invalid range start in %q", part)
			}
			if hi, err = strconv.Atoi(bounds[1]); err != nil {
				return 0, fmt.Errorf("invalid range end in %q", part)
			}
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			lo, hi = v, v
		}

		if lo < min || hi > max || lo > hi {
			return 0, fmt.Errorf("value out of range %d-%d in %q", min, max, part)
		}
		for v := lo; v <= hi; v += step {
			bits |= 1 << v
		}
	}
	return bits, nil
}
