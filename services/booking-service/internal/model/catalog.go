package model

import (
	"time"

	"cloud.google.com/go/civil"
)

type SlotMode string

const (
	// SlotModeTemplate types are bookable within the weekly availability template.
	SlotModeTemplate SlotMode = "template"
	// SlotModeFixedCadence types are bookable on a fixed weekday grid with no template.
	SlotModeFixedCadence SlotMode = "fixed_cadence"
)

type ConsultationType struct {
	ID              int64
	Name            string
	DisplayNames    map[string]string
	Descriptions    map[string]string
	DurationMinutes int
	PriceMinor      int64
	Mode            SlotMode
	Active          bool
}

func (t ConsultationType) Free() bool {
	return t.PriceMinor == 0
}

// DisplayName returns the name for lang, falling back to any translation and then the machine name.
func (t ConsultationType) DisplayName(lang string) string {
	if v := t.DisplayNames[lang]; v != "" {
		return v
	}
	for _, v := range t.DisplayNames {
		if v != "" {
			return v
		}
	}
	return t.Name
}

// WeeklySlot is one recurring availability entry. Weekday 0 is Sunday.
type WeeklySlot struct {
	ID      int64
	Weekday time.Weekday
	Start   civil.Time
	End     civil.Time
	Active  bool
}

type BlockedDate struct {
	Date   civil.Date
	Reason string
}

// Slot is a bookable candidate on a given date.
type Slot struct {
	Start civil.Time
	End   civil.Time
}
