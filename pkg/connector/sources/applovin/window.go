package applovin

import (
	"time"
)

const dateLayout = "2006-01-02"

// WindowMode selects how a requested date range is partitioned into
// per-request windows.
type WindowMode string

const (
	// WindowModeSingle sends the entire range as one open-ended request.
	WindowModeSingle WindowMode = "single-window"
	// WindowModeDailyChunks splits the range into bounded windows.
	WindowModeDailyChunks WindowMode = "daily-chunks"
)

// TimeWindow is one bounded date range sent as the start/end parameters of a
// report request. OpenEnded marks a window whose end coincides with the
// current date; such windows are sent with the "now" sentinel so the server
// extends them to the current time instead of a frozen timestamp. The flag is
// decided once at planning time, not re-derived per request.
type TimeWindow struct {
	Start     time.Time
	End       time.Time
	OpenEnded bool
}

// StartDate returns the window start formatted as YYYY-MM-DD.
func (w TimeWindow) StartDate() string {
	return w.Start.Format(dateLayout)
}

// EndDate returns the window end formatted as YYYY-MM-DD.
func (w TimeWindow) EndDate() string {
	return w.End.Format(dateLayout)
}

// planWindows partitions [start, end) into windows per the given mode.
//
// WindowModeSingle yields one open-ended window covering the whole range.
// WindowModeDailyChunks yields contiguous, non-overlapping, ascending windows
// of at most maxWindowDays each, the last clamped to end. A start at or past
// end yields no windows.
func planWindows(start, end time.Time, mode WindowMode, maxWindowDays int, now time.Time) []TimeWindow {
	if !start.Before(end) {
		return nil
	}

	if mode == WindowModeSingle {
		return []TimeWindow{{Start: start, End: end, OpenEnded: true}}
	}

	if maxWindowDays <= 0 {
		maxWindowDays = 1
	}

	today := now.Format(dateLayout)
	var windows []TimeWindow

	current := start
	for current.Before(end) {
		windowEnd := current.AddDate(0, 0, maxWindowDays)
		if windowEnd.After(end) {
			windowEnd = end
		}

		windows = append(windows, TimeWindow{
			Start:     current,
			End:       windowEnd,
			OpenEnded: windowEnd.Format(dateLayout) >= today,
		})
		current = windowEnd
	}

	return windows
}
