package recurrence

import (
	"fmt"

	"github.com/dukerupert/choreledger/internal/model"
)

// Describe returns a short human-readable label for a chore's schedule.
func Describe(freq model.Frequency, customInterval *int) string {
	switch freq {
	case model.FrequencyDaily:
		return "Repeats daily"
	case model.FrequencyWeekly:
		return "Repeats weekly"
	case model.FrequencyBiweekly:
		return "Repeats every 2 weeks"
	case model.FrequencyMonthly:
		return "Repeats monthly"
	case model.FrequencyQuarterly:
		return "Repeats every 3 months"
	case model.FrequencyYearly:
		return "Repeats yearly"
	case model.FrequencyCustom:
		if customInterval == nil {
			return "Does not repeat"
		}
		if *customInterval == 1 {
			return "Repeats daily"
		}
		return fmt.Sprintf("Repeats every %d days", *customInterval)
	}
	return ""
}
