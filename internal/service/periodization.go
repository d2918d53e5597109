package service

import (
	"alcyxob/coach-bot/internal/domain"
)

// Phase cycle lengths per experience tier. Beginners progress through a
// longer cycle before it repeats.
const (
	beginnerCycleWeeks = 6
	advancedCycleWeeks = 3
)

var beginnerPhases = [beginnerCycleWeeks]string{
	"Adaptation",
	"Adaptation",
	"Volume",
	"Volume",
	"Intensity",
	"Deload",
}

var advancedPhases = [advancedCycleWeeks]string{
	"Accumulation",
	"Intensification",
	"Deload",
}

// CycleLength returns the periodization cycle length for a tier.
func CycleLength(level domain.FitnessLevel) int {
	if level == domain.LevelBeginner {
		return beginnerCycleWeeks
	}
	return advancedCycleWeeks
}

// EffectiveWeek reduces the absolute training-week counter into the tier's
// repeating phase cycle, e.g. week 7 for a beginner becomes week 1 again.
// Always in [1, CycleLength(level)] for absoluteWeek >= 1.
func EffectiveWeek(absoluteWeek int, level domain.FitnessLevel) int {
	return ((absoluteWeek - 1) % CycleLength(level)) + 1
}

// PhaseLabel names the periodization phase for the given effective week. It
// feeds both generation parameters and the plan summary shown to the user.
func PhaseLabel(effectiveWeek int, level domain.FitnessLevel) string {
	if effectiveWeek < 1 {
		effectiveWeek = 1
	}
	if level == domain.LevelBeginner {
		return beginnerPhases[(effectiveWeek-1)%beginnerCycleWeeks]
	}
	return advancedPhases[(effectiveWeek-1)%advancedCycleWeeks]
}
