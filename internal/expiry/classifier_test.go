package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassifyBoundaries(t *testing.T) {
	today := time.Date(2024, time.March, 10, 18, 45, 0, 0, time.UTC)

	cases := []struct {
		name string
		exp  time.Time
		want Status
	}{
		{"yesterday", day(2024, time.March, 9), StatusExpired},
		{"today", day(2024, time.March, 10), StatusExpiringSoon},
		{"tomorrow", day(2024, time.March, 11), StatusExpiringSoon},
		{"edge of window", day(2024, time.March, 17), StatusExpiringSoon},
		{"past window", day(2024, time.March, 18), StatusFresh},
		{"long ago", day(2023, time.January, 1), StatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.exp, today))
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	exp := time.Date(2024, time.March, 10, 0, 0, 1, 0, time.UTC)
	lateToday := time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, 0, DaysUntil(exp, lateToday))
	assert.Equal(t, StatusExpiringSoon, Classify(exp, lateToday))
}

func TestPolicyWindow(t *testing.T) {
	today := day(2024, time.March, 10)
	p := Policy{SoonWindowDays: 2}
	assert.Equal(t, StatusExpiringSoon, p.Classify(day(2024, time.March, 12), today))
	assert.Equal(t, StatusFresh, p.Classify(day(2024, time.March, 13), today))

	zero := Policy{SoonWindowDays: 0}
	assert.Equal(t, StatusExpiringSoon, zero.Classify(today, today))
	assert.Equal(t, StatusFresh, zero.Classify(day(2024, time.March, 11), today))
}

func TestDaysUntilAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	today := time.Date(2024, time.March, 30, 12, 0, 0, 0, loc)
	exp := time.Date(2024, time.April, 2, 0, 0, 0, 0, loc)
	assert.Equal(t, 3, DaysUntil(exp, today))
}

func TestIsWithin(t *testing.T) {
	today := day(2024, time.March, 10)
	assert.True(t, IsWithin(day(2024, time.March, 1), today, 2))
	assert.True(t, IsWithin(day(2024, time.March, 12), today, 2))
	assert.False(t, IsWithin(day(2024, time.March, 13), today, 2))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), got)

	got, err = ParseDate("2024-02-29T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.February, 29), got)

	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	assert.Equal(t, "2024-02-29", FormatDate(time.Date(2024, time.February, 29, 22, 0, 0, 0, time.UTC)))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("expiring")
	assert.True(t, ok)
	assert.Equal(t, StatusExpiringSoon, s)

	_, ok = ParseStatus("stale")
	assert.False(t, ok)
}
