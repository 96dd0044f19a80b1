package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(weekday time.Weekday, hour, minute int) time.Time {
	// 2026-03-01 is a Sunday.
	base := time.Date(2026, 3, 1, hour, minute, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(weekday))
}

func TestParseCron_EveryMinute(t *testing.T) {
	expr, err := ParseCron("* * * * *")
	require.NoError(t, err)

	assert.True(t, expr.Matches(at(time.Monday, 0, 0)))
	assert.True(t, expr.Matches(at(time.Friday, 23, 59)))
}

func TestParseCron_FixedTime(t *testing.T) {
	expr, err := ParseCron("30 4 * * *")
	require.NoError(t, err)

	assert.True(t, expr.Matches(at(time.Tuesday, 4, 30)))
	assert.False(t, expr.Matches(at(time.Tuesday, 4, 31)))
	assert.False(t, expr.Matches(at(time.Tuesday, 5, 30)))
}

func TestParseCron_Steps(t *testing.T) {
	expr, err := ParseCron("*/15 * * * *")
	require.NoError(t, err)

	for _, minute := range []int{0, 15, 30, 45} {
		assert.True(t, expr.Matches(at(time.Monday, 10, minute)), "minute %d", minute)
	}
	assert.False(t, expr.Matches(at(time.Monday, 10, 20)))
}

func TestParseCron_RangeWithStep(t *testing.T) {
	expr, err := ParseCron("0 9-17/2 * * *")
	require.NoError(t, err)

	for _, hour := range []int{9, 11, 13, 15, 17} {
		assert.True(t, expr.Matches(at(time.Monday, hour, 0)), "hour %d", hour)
	}
	assert.False(t, expr.Matches(at(time.Monday, 10, 0)))
	assert.False(t, expr.Matches(at(time.Monday, 18, 0)))
}

func TestParseCron_List(t *testing.T) {
	expr, err := ParseCron("0,30 6,18 * * *")
	require.NoError(t, err)

	assert.True(t, expr.Matches(at(time.Monday, 6, 0)))
	assert.True(t, expr.Matches(at(time.Monday, 18, 30)))
	assert.False(t, expr.Matches(at(time.Monday, 12, 0)))
	assert.False(t, expr.Matches(at(time.Monday, 6, 15)))
}

func TestParseCron_SundayBothSpellings(t *testing.T) {
	zero, err := ParseCron("0 0 * * 0")
	require.NoError(t, err)
	seven, err := ParseCron("0 0 * * 7")
	require.NoError(t, err)

	sunday := at(time.Sunday, 0, 0)
	monday := at(time.Monday, 0, 0)

	assert.True(t, zero.Matches(sunday))
	assert.True(t, seven.Matches(sunday))
	assert.False(t, zero.Matches(monday))
	assert.False(t, seven.Matches(monday))
}

func TestParseCron_WeekdayRange(t *testing.T) {
	expr, err := ParseCron("0 8 * * 1-5")
	require.NoError(t, err)

	assert.True(t, expr.Matches(at(time.Monday, 8, 0)))
	assert.True(t, expr.Matches(at(time.Friday, 8, 0)))
	assert.False(t, expr.Matches(at(time.Saturday, 8, 0)))
	assert.False(t, expr.Matches(at(time.Sunday, 8, 0)))
}

func TestParseCron_Aliases(t *testing.T) {
	hourly, err := ParseCron("@hourly")
	require.NoError(t, err)
	assert.True(t, hourly.Matches(at(time.Monday, 13, 0)))
	assert.False(t, hourly.Matches(at(time.Monday, 13, 1)))

	daily, err := ParseCron("@daily")
	require.NoError(t, err)
	assert.True(t, daily.Matches(at(time.Monday, 0, 0)))
	assert.False(t, daily.Matches(at(time.Monday, 1, 0)))

	weekly, err := ParseCron("@weekly")
	require.NoError(t, err)
	assert.True(t, weekly.Matches(at(time.Sunday, 0, 0)))
	assert.False(t, weekly.Matches(at(time.Monday, 0, 0)))

	monthly, err := ParseCron("@monthly")
	require.NoError(t, err)
	assert.True(t, monthly.Matches(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, monthly.Matches(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestParseCron_MonthAndDayOfMonth(t *testing.T) {
	expr, err := ParseCron("0 0 25 12 *")
	require.NoError(t, err)

	assert.True(t, expr.Matches(time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)))
	assert.False(t, expr.Matches(time.Date(2026, 11, 25, 0, 0, 0, 0, time.UTC)))
	assert.False(t, expr.Matches(time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)))
}

func TestParseCron_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"* * * *",
		"* * * * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * 32 * *",
		"* * * 13 *",
		"* * * * 8",
		"a * * * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"1-a * * * *",
	}
	for _, expr := range invalid {
		_, err := ParseCron(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}
