package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_Valid(t *testing.T) {
	s, err := ParseSchedule("08:00,12:30,20:15")
	require.NoError(t, err)
	assert.Equal(t, Schedule{"08:00", "12:30", "20:15"}, s)
	assert.Equal(t, "08:00,12:30,20:15", s.String())
}

func TestParseSchedule_NormalizesSingleDigitHour(t *testing.T) {
	s, err := ParseSchedule("8:00,9:05")
	require.NoError(t, err)
	assert.Equal(t, Schedule{"08:00", "09:05"}, s)
}

func TestParseSchedule_CollapsesDuplicates(t *testing.T) {
	// "8:00" and "08:00" name the same minute and must not double-fire.
	s, err := ParseSchedule("8:00,08:00")
	require.NoError(t, err)
	assert.Equal(t, Schedule{"08:00"}, s)
}

func TestParseSchedule_TrimsWhitespace(t *testing.T) {
	s, err := ParseSchedule(" 08:00 , 20:30")
	require.NoError(t, err)
	assert.Equal(t, Schedule{"08:00", "20:30"}, s)
}

func TestParseSchedule_Invalid(t *testing.T) {
	for _, in := range []string{"", "25:00", "08:61", "soon", "08:00,,20:00"} {
		_, err := ParseSchedule(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, errors.Is(err, ErrBadRequest))
	}
}

func TestScheduleMatches(t *testing.T) {
	s := Schedule{"08:00", "20:30"}
	now := time.Date(2026, 3, 14, 20, 30, 45, 0, time.Local)
	assert.Equal(t, []string{"20:30"}, s.Matches(now))
	assert.Empty(t, s.Matches(now.Add(time.Minute)))
}
