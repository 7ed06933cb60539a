package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	duration "github.com/ChannelMeter/iso8601duration"
)

// Alarm actions supported in VALARM blocks.
const (
	ActionDisplay = "DISPLAY"
	ActionAudio   = "AUDIO"
)

// Alarm is a reminder relative to the event start.
type Alarm struct {
	// Before is how long before DTSTART the alarm fires. Negative values
	// fire after the start.
	Before time.Duration

	// Action is DISPLAY (default) or AUDIO.
	Action string

	// Description is shown by DISPLAY alarms. Empty falls back to the
	// event summary at compile time.
	Description string
}

// ErrBadOffset is returned for alarm offsets that cannot be parsed.
var ErrBadOffset = errors.New("bad alarm offset")

// isoDuration is the subset of ISO 8601 durations RFC 5545 allows (no years
// or months).
var isoDuration = regexp.MustCompile(`^P(\d+W|\d+D(T(\d+H)?(\d+M)?(\d+S)?)?|T(\d+H)?(\d+M)?(\d+S)?)$`)

// Trigger renders the alarm as an RFC 5545 TRIGGER value, e.g. "-PT15M".
func (a Alarm) Trigger() string {
	switch {
	case a.Before > 0:
		return "-" + FormatDuration(a.Before)
	case a.Before < 0:
		return FormatDuration(-a.Before)
	default:
		return "PT0S"
	}
}

// Normalize upper-cases Action and defaults it to DISPLAY.
func (a Alarm) Normalize() (Alarm, error) {
	a.Action = strings.ToUpper(strings.TrimSpace(a.Action))
	switch a.Action {
	case "":
		a.Action = ActionDisplay
	case ActionDisplay, ActionAudio:
	default:
		return a, fmt.Errorf("unsupported alarm action %q", a.Action)
	}
	return a, nil
}

// ParseAlarm accepts the loose shapes callers use to describe an alarm:
//
//   - int / int64 / float64: minutes before the start
//   - time.Duration: offset before the start
//   - string: see ParseOffset
//   - Alarm / *Alarm
func ParseAlarm(v any) (Alarm, error) {
	var a Alarm
	switch t := v.(type) {
	case Alarm:
		a = t
	case *Alarm:
		if t == nil {
			return Alarm{}, fmt.Errorf("%w: nil alarm", ErrBadOffset)
		}
		a = *t
	case int:
		a.Before = time.Duration(t) * time.Minute
	case int64:
		a.Before = time.Duration(t) * time.Minute
	case float64:
		a.Before = time.Duration(t * float64(time.Minute))
	case time.Duration:
		a.Before = t
	case string:
		d, err := ParseOffset(t)
		if err != nil {
			return Alarm{}, err
		}
		a.Before = d
	default:
		return Alarm{}, fmt.Errorf("%w: unsupported type %T", ErrBadOffset, v)
	}
	return a.Normalize()
}

// ParseOffset parses an alarm offset string into a "before start" duration.
//
// Plain numbers are minutes ("15") and Go durations ("1h30m") both mean
// before the start. ISO 8601 durations keep their RFC 5545 sign: "-PT15M"
// is 15 minutes before, "PT15M" and "+PT15M" are 15 minutes after.
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadOffset)
	}

	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "P") || strings.HasPrefix(upper, "-P") || strings.HasPrefix(upper, "+P") {
		before := strings.HasPrefix(upper, "-")
		d, err := ParseDuration(strings.TrimLeft(upper, "+-"))
		if err != nil {
			return 0, err
		}
		if before {
			return d, nil
		}
		return -d, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadOffset, s)
	}
	return d, nil
}

// ParseDuration parses an unsigned ISO 8601 duration such as "PT1H30M" or "P1W".
func ParseDuration(s string) (time.Duration, error) {
	if !isoDuration.MatchString(s) || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("%w: %q", ErrBadOffset, s)
	}
	d, err := duration.FromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadOffset, s, err)
	}
	return d.ToDuration(), nil
}

// FormatDuration renders a non-negative duration in ISO 8601 form using
// days, hours, minutes and seconds. Sub-second precision is dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	secs := int(d / time.Second)
	if secs == 0 {
		return "PT0S"
	}

	iso := duration.Duration{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
	return iso.String()
}
