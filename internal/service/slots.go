package service

import (
	"alcyxob/coach-bot/internal/domain"
	"sort"
	"time"
)

// Slot search bounds. The regeneration path scans a longer window than the
// first-generation path. The asymmetry is intentional; do not unify without
// product confirmation.
const (
	regenSearchWindowDays = 14
	firstWeekSearchDays   = 7
)

// Hour assigned to sessions when the user configured no availability.
const defaultSlotHour = 12

// CalculateSlots converts a user's recurring weekly availability (or absence
// thereof) into concrete future date-times for up to requestedCount sessions.
//
// lastFuturePlanned is the planned time of the user's last still-future
// session, or nil if no future plan exists. A new weekly cycle never overlaps
// a previously scheduled one: with a future plan present, the search starts at
// the Monday after the week containing that session.
//
// The result is sorted ascending, strictly after now, and may be shorter than
// requestedCount only when no further slots exist within the search window.
func CalculateSlots(requestedCount int, availability []domain.AvailabilitySlot, lastFuturePlanned *time.Time, now time.Time) []time.Time {
	if requestedCount <= 0 {
		return nil
	}

	byDay := availabilityByDay(availability)

	var slots []time.Time
	if lastFuturePlanned != nil {
		slots = regenerationSlots(requestedCount, byDay, *lastFuturePlanned, now)
	} else {
		slots = firstGenerationSlots(requestedCount, byDay, now)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	if len(slots) > requestedCount {
		slots = slots[:requestedCount]
	}
	return slots
}

// availabilityByDay indexes availability by weekday. Entries with an
// out-of-range day or time are configuration errors and are skipped rather
// than aborting the whole computation.
func availabilityByDay(availability []domain.AvailabilitySlot) map[time.Weekday]domain.AvailabilitySlot {
	byDay := make(map[time.Weekday]domain.AvailabilitySlot, len(availability))
	for _, a := range availability {
		if a.Day < time.Sunday || a.Day > time.Saturday {
			continue
		}
		if a.Hour < 0 || a.Hour > 23 || a.Minute < 0 || a.Minute > 59 {
			continue
		}
		byDay[a.Day] = a
	}
	return byDay
}

// regenerationSlots schedules the next cycle strictly after the week that
// already holds planned sessions.
func regenerationSlots(requestedCount int, byDay map[time.Weekday]domain.AvailabilitySlot, lastFuturePlanned, now time.Time) []time.Time {
	start := mondayAfter(lastFuturePlanned)

	var slots []time.Time
	if len(byDay) == 0 {
		// One session per calendar day at the default time.
		for i := 0; i < requestedCount; i++ {
			slot := atTime(start.AddDate(0, 0, i), defaultSlotHour, 0)
			if slot.After(now) {
				slots = append(slots, slot)
			}
		}
		return slots
	}

	for i := 0; i < regenSearchWindowDays && len(slots) < requestedCount; i++ {
		day := start.AddDate(0, 0, i)
		if a, ok := byDay[day.Weekday()]; ok {
			slot := atTime(day, a.Hour, a.Minute)
			if slot.After(now) {
				slots = append(slots, slot)
			}
		}
	}
	return slots
}

// firstGenerationSlots fits the first-ever cycle into what remains of the
// current week, rolling the whole set to next Monday when it cannot fit.
func firstGenerationSlots(requestedCount int, byDay map[time.Weekday]domain.AvailabilitySlot, now time.Time) []time.Time {
	weekStart := mondayOf(now)
	weekEnd := weekStart.AddDate(0, 0, 7) // exclusive

	var slots []time.Time
	if len(byDay) == 0 {
		// Daily sessions starting tomorrow if the remainder of the week has
		// room, otherwise the whole set moves to next Monday. Cycles are
		// never split across week boundaries.
		tomorrow := dateOf(now).AddDate(0, 0, 1)
		daysLeft := int(weekEnd.Sub(tomorrow).Hours() / 24)
		start := tomorrow
		if daysLeft < requestedCount {
			start = weekEnd
		}
		for i := 0; i < requestedCount; i++ {
			slot := atTime(start.AddDate(0, 0, i), defaultSlotHour, 0)
			if slot.After(now) {
				slots = append(slots, slot)
			}
		}
		return slots
	}

	// Remainder of the current week first; past occurrences of a configured
	// weekday are skipped by the strict-future check.
	for day := dateOf(now); day.Before(weekEnd); day = day.AddDate(0, 0, 1) {
		if len(slots) >= requestedCount {
			break
		}
		if a, ok := byDay[day.Weekday()]; ok {
			slot := atTime(day, a.Hour, a.Minute)
			if slot.After(now) {
				slots = append(slots, slot)
			}
		}
	}
	if len(slots) > 0 {
		return slots
	}

	// Nothing left this week: continue into the next full week.
	for i := 0; i < firstWeekSearchDays && len(slots) < requestedCount; i++ {
		day := weekEnd.AddDate(0, 0, i)
		if a, ok := byDay[day.Weekday()]; ok {
			slot := atTime(day, a.Hour, a.Minute)
			if slot.After(now) {
				slots = append(slots, slot)
			}
		}
	}
	return slots
}

// mondayOf returns midnight of the Monday of the week containing t.
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return dateOf(t).AddDate(0, 0, -offset)
}

// mondayAfter returns midnight of the Monday following the week containing t.
func mondayAfter(t time.Time) time.Time {
	return mondayOf(t).AddDate(0, 0, 7)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atTime(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}
