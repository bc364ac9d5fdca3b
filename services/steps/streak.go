package steps

import (
	"sort"
	"time"

	"github.com/walkingapp/walking-api/models"
)

// CalculateStreak returns the current and longest runs of consecutive days
// whose total reaches goal. The current streak ends today, or yesterday when
// today has not reached the goal yet. Totals may be in any order; duplicate
// days are summed.
func CalculateStreak(totals []models.DailyTotal, goal int, today time.Time) (current, longest int) {
	byDay := make(map[time.Time]int, len(totals))
	for _, total := range totals {
		byDay[models.TruncateDay(total.Date)] += total.Steps
	}

	qualifying := make([]time.Time, 0, len(byDay))
	for day, steps := range byDay {
		if steps >= goal {
			qualifying = append(qualifying, day)
		}
	}
	if len(qualifying) == 0 {
		return 0, 0
	}
	sort.Slice(qualifying, func(i, j int) bool { return qualifying[i].Before(qualifying[j]) })

	run := 0
	for i, day := range qualifying {
		if i > 0 && qualifying[i-1].AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	qualifies := func(day time.Time) bool {
		steps, ok := byDay[day]
		return ok && steps >= goal
	}

	day := models.TruncateDay(today)
	if !qualifies(day) {
		day = day.AddDate(0, 0, -1)
	}
	for qualifies(day) {
		current++
		day = day.AddDate(0, 0, -1)
	}

	return current, longest
}
