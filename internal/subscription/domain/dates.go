package domain

import (
	"strings"
	"time"
)

const (
	// DateLayout is the text form of stored dates.
	DateLayout = "2006-01-02 15:04:05"
	// ZeroDate is the all-zero text that means "unset".
	ZeroDate = "0000-00-00 00:00:00"
)

// ParseDate parses stored date text as UTC. Empty and all-zero text yield nil.
func ParseDate(text string) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == ZeroDate || text == "0000-00-00" {
		return nil, nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ErrInvalidFieldValue
}

// FormatDate renders a date in DateLayout; unset renders as "".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
