package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	labelLayout = "15:04"

	// slotStep is the fixed cadence of generated slots.
	slotStep = 30 * time.Minute
)

// parseDate accepts a YYYY-MM-DD calendar date and returns it in canonical
// form.  Impossible dates such as 2025-02-30 are rejected.
func parseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(dateLayout), nil
}

// validLabel reports whether l is a zero-padded 24h HH:MM label.
func validLabel(l string) bool {
	if len(l) != len(labelLayout) {
		return false
	}
	_, err := time.Parse(labelLayout, l)
	return err == nil
}

// halfHourLabels returns the labels of every 30-minute tick in
// [startHour, endHour).
func halfHourLabels(startHour, endHour int) []string {
	var out []string
	for m := startHour * 60; m < endHour*60; m += int(slotStep / time.Minute) {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// FormatLabel renders a slot label for people, e.g. "14:30" as "02:30 PM".
// Malformed labels are returned unchanged.
func FormatLabel(l string) string {
	t, err := time.Parse(labelLayout, l)
	if err != nil {
		return l
	}
	return t.Format("03:04 PM")
}
