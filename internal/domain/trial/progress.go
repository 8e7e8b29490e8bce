package trial

import (
	"math"
	"strings"
	"time"
)

// PhaseDateFormat is the calendar-date layout phase schedules are stored in.
const PhaseDateFormat = "2006-01-02"

// CalculateProgress derives a completion percentage from a phase schedule.
// A phase counts as complete when its date is present, parseable and not
// after now; blank or malformed dates never count. The result is rounded to
// the nearest integer and clamped to [0,100].
func CalculateProgress(phaseDates map[int]string, totalPhases int, now time.Time) int {
	if totalPhases <= 0 {
		return 0
	}

	completed := 0
	for phase := 1; phase <= totalPhases; phase++ {
		raw := strings.TrimSpace(phaseDates[phase])
		if raw == "" {
			continue
		}
		date, err := time.Parse(PhaseDateFormat, raw)
		if err != nil {
			continue
		}
		if !date.After(now) {
			completed++
		}
	}

	pct := int(math.Round(100 * float64(completed) / float64(totalPhases)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
