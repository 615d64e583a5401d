package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern = regexp.MustCompile(`a las (\d{1,2})(?::(\d{2}))?`)
	barePattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

const defaultAppointmentHour = 9

// ParseSpanishDate reads the free text of an /agendar command ("mañana a
// las 10", "hoy 15:30") into a concrete timestamp. It recognizes relative
// day words and an optional clock time; without a day word the appointment
// lands today, or tomorrow when the hour already passed. Returns false when
// nothing date-like appears in the text.
func ParseSpanishDate(text string, now time.Time) (time.Time, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return time.Time{}, false
	}

	dayOffset := -1
	switch {
	case strings.Contains(normalized, "pasado mañana") || strings.Contains(normalized, "pasado manana"):
		dayOffset = 2
	case strings.Contains(normalized, "mañana") || strings.Contains(normalized, "manana"):
		dayOffset = 1
	case strings.Contains(normalized, "hoy"):
		dayOffset = 0
	}

	hour, minute, hasClock := parseClock(normalized)
	if dayOffset < 0 && !hasClock {
		return time.Time{}, false
	}
	if !hasClock {
		hour, minute = defaultAppointmentHour, 0
	}

	day := now
	if dayOffset > 0 {
		day = now.AddDate(0, 0, dayOffset)
	}
	when := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())

	// A bare clock time that already passed today means tomorrow.
	if dayOffset < 0 && !when.After(now) {
		when = when.AddDate(0, 0, 1)
	}
	return when, true
}

func parseClock(text string) (hour, minute int, ok bool) {
	match := clockPattern.FindStringSubmatch(text)
	if match == nil {
		// also accept a bare HH:MM
		bare := barePattern.FindStringSubmatch(text)
		if bare == nil {
			return 0, 0, false
		}
		match = []string{bare[0], bare[1], bare[2]}
	}

	hour, err := strconv.Atoi(match[1])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	if match[2] != "" {
		minute, err = strconv.Atoi(match[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}
