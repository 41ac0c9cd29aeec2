// Package calendar computes the theoretical slot set for a date. It does not know about
// blocked dates, existing bookings or the current time; callers apply those filters.
package calendar

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/llcportal/consultations/services/booking-service/internal/model"
)

// Fixed-cadence grid used by types without a weekly template.
var (
	CadenceOpen     = civil.Time{Hour: 10}
	CadenceClose    = civil.Time{Hour: 18}
	CadenceInterval = 20 * time.Minute
)

// OpenSlots returns the maximal ordered slot set for date under the type's slot mode.
func OpenSlots(date civil.Date, ct model.ConsultationType, template []model.WeeklySlot) []model.Slot {
	if ct.Mode == model.SlotModeFixedCadence {
		return CadenceSlots(date)
	}
	return TemplateSlots(date, template)
}

// TemplateSlots returns every active template entry for the date's weekday, sorted by start.
// Overlapping entries are kept as they are.
func TemplateSlots(date civil.Date, template []model.WeeklySlot) []model.Slot {
	weekday := model.Weekday(date)
	var slots []model.Slot
	for _, entry := range template {
		if !entry.Active || entry.Weekday != weekday {
			continue
		}
		if model.ClockMinutes(entry.End) <= model.ClockMinutes(entry.Start) {
			continue
		}
		slots = append(slots, model.Slot{Start: entry.Start, End: entry.End})
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return model.ClockMinutes(slots[i].Start) < model.ClockMinutes(slots[j].Start)
	})
	return slots
}

// CadenceSlots generates CadenceInterval slots in [CadenceOpen, CadenceClose) on weekdays.
// A trailing slot that would cross CadenceClose is dropped.
func CadenceSlots(date civil.Date) []model.Slot {
	if IsWeekend(date) {
		return nil
	}
	step := int(CadenceInterval / time.Minute)
	open := model.ClockMinutes(CadenceOpen)
	closeAt := model.ClockMinutes(CadenceClose)

	var slots []model.Slot
	for m := open; m+step <= closeAt; m += step {
		start := model.AddMinutes(civil.Time{}, m)
		slots = append(slots, model.Slot{Start: start, End: model.AddMinutes(start, step)})
	}
	return slots
}

func IsWeekend(date civil.Date) bool {
	wd := model.Weekday(date)
	return wd == time.Saturday || wd == time.Sunday
}

// Contains reports whether start matches the start of one of slots.
func Contains(slots []model.Slot, start civil.Time) (model.Slot, bool) {
	for _, s := range slots {
		if model.ClockMinutes(s.Start) == model.ClockMinutes(start) {
			return s, true
		}
	}
	return model.Slot{}, false
}
