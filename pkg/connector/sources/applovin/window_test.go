package applovin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanWindows_SingleMode(t *testing.T) {
	now := date(2026, 8, 29)
	windows := planWindows(date(2026, 8, 1), date(2026, 8, 29), WindowModeSingle, 0, now)

	require.Len(t, windows, 1)
	assert.Equal(t, "2026-08-01", windows[0].StartDate())
	assert.Equal(t, "2026-08-29", windows[0].EndDate())
	assert.True(t, windows[0].OpenEnded)
}

func TestPlanWindows_DailyChunks(t *testing.T) {
	now := date(2026, 8, 29)
	windows := planWindows(date(2026, 8, 26), date(2026, 8, 29), WindowModeDailyChunks, 1, now)

	require.Len(t, windows, 3)

	assert.Equal(t, "2026-08-26", windows[0].StartDate())
	assert.Equal(t, "2026-08-27", windows[0].EndDate())
	assert.Equal(t, "2026-08-27", windows[1].StartDate())
	assert.Equal(t, "2026-08-28", windows[1].EndDate())
	assert.Equal(t, "2026-08-28", windows[2].StartDate())
	assert.Equal(t, "2026-08-29", windows[2].EndDate())

	// Windows are contiguous and ascending.
	for i := 1; i < len(windows); i++ {
		assert.True(t, windows[i-1].End.Equal(windows[i].Start))
		assert.True(t, windows[i-1].Start.Before(windows[i].Start))
	}

	assert.False(t, windows[0].OpenEnded)
	assert.False(t, windows[1].OpenEnded)
	assert.True(t, windows[2].OpenEnded, "window ending today extends to the current time")
}

func TestPlanWindows_LastWindowClamped(t *testing.T) {
	now := date(2026, 9, 30)
	windows := planWindows(date(2026, 8, 1), date(2026, 8, 8), WindowModeDailyChunks, 3, now)

	require.Len(t, windows, 3)
	assert.Equal(t, "2026-08-07", windows[2].StartDate())
	assert.Equal(t, "2026-08-08", windows[2].EndDate(), "final window is clamped to the range end")
	for _, w := range windows {
		assert.False(t, w.OpenEnded)
	}
}

func TestPlanWindows_EmptyRange(t *testing.T) {
	now := date(2026, 8, 29)

	assert.Nil(t, planWindows(date(2026, 8, 29), date(2026, 8, 29), WindowModeDailyChunks, 1, now))
	assert.Nil(t, planWindows(date(2026, 8, 30), date(2026, 8, 29), WindowModeDailyChunks, 1, now))
	assert.Nil(t, planWindows(date(2026, 8, 30), date(2026, 8, 29), WindowModeSingle, 0, now))
}

func TestPlanWindows_ZeroMaxWindowDays(t *testing.T) {
	now := date(2026, 8, 29)
	windows := planWindows(date(2026, 8, 27), date(2026, 8, 29), WindowModeDailyChunks, 0, now)

	require.Len(t, windows, 2, "non-positive chunk size falls back to one day")
}
