package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := ParseTime(s)
	require.NoError(t, err)
	return v
}

func TestParseAndFormatTime(t *testing.T) {
	v := at(t, "2024-05-01 16:00:00")
	assert.Equal(t, "2024-05-01 16:00:00", FormatTime(v))

	v = at(t, "2024-05-01T16:00:00Z")
	assert.Equal(t, "2024-05-01 16:00:00", FormatTime(v))

	_, err := ParseTime("01/05/2024 16:00")
	assert.Error(t, err)
}

func TestLexicalOrderMatchesChronological(t *testing.T) {
	times := []time.Time{
		at(t, "2024-12-01 09:05:00"),
		at(t, "2024-02-10 23:00:00"),
		at(t, "2024-02-10 08:30:00"),
	}
	strs := make([]string, len(times))
	for i, v := range times {
		strs[i] = FormatTime(v)
	}
	sort.Strings(strs)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := range times {
		assert.Equal(t, FormatTime(times[i]), strs[i])
	}
}

func TestShowtimeOverlaps(t *testing.T) {
	t1 := Showtime{StartsAt: at(t, "2024-05-01 16:00:00"), EndsAt: at(t, "2024-05-01 18:10:00")}
	t2 := Showtime{StartsAt: at(t, "2024-05-01 17:00:00"), EndsAt: at(t, "2024-05-01 19:00:00")}
	t3 := Showtime{StartsAt: at(t, "2024-05-01 18:10:00"), EndsAt: at(t, "2024-05-01 20:00:00")}

	assert.True(t, t1.Overlaps(t2))
	assert.True(t, t2.Overlaps(t1))
	assert.False(t, t1.Overlaps(t3))
	assert.False(t, t3.Overlaps(t1))
}
