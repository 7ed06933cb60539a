package ics

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/teambition/rrule-go"

	"nowcal/internal/model"
)

// normalizer converts an accepted raw shape into the canonical type stored
// in the bag: string, []string, int, time.Time, time.Duration,
// *rrule.ROption or []model.Alarm.
type normalizer func(v any, loc *time.Location) (any, error)

var normalizers = [fieldCount]normalizer{
	FieldUID:         normalizeUID,
	FieldStamp:       normalizeTime,
	FieldCreated:     normalizeTime,
	FieldStart:       normalizeTime,
	FieldEnd:         normalizeTime,
	FieldDuration:    normalizeDuration,
	FieldSummary:     normalizeText,
	FieldDescription: normalizeText,
	FieldLocation:    normalizeText,
	FieldURL:         normalizeURL,
	FieldOrganizer:   normalizeAddress,
	FieldAttendees:   normalizeAddresses,
	FieldCategories:  normalizeTextList,
	FieldStatus:      normalizeStatus,
	FieldSequence:    normalizeSequence,
	FieldRRule:       normalizeRRule,
	FieldAlarms:      normalizeAlarms,
}

// timeLayouts are tried in order for string timestamps. Layouts without a
// zone are read in the bag's location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"20060102T150405Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"20060102T150405",
	"2006-01-02",
	"20060102",
}

var validStatus = map[string]bool{
	"TENTATIVE": true,
	"CONFIRMED": true,
	"CANCELLED": true,
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func normalizeText(v any, _ *time.Location) (any, error) {
	s, ok := asString(v)
	if !ok {
		return nil, fmt.Errorf("want string, got %T", v)
	}
	if !utf8.ValidString(s) {
		return nil, errors.New("text is not valid UTF-8")
	}
	return s, nil
}

func normalizeUID(v any, loc *time.Location) (any, error) {
	s, err := normalizeText(v, loc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.(string)) == "" {
		return nil, errors.New("uid is empty")
	}
	if strings.ContainsAny(s.(string), "\r\n") {
		return nil, errors.New("uid contains a line break")
	}
	return s, nil
}

func normalizeTime(v any, loc *time.Location) (any, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil, errors.New("zero time")
		}
		return t.UTC(), nil
	case *time.Time:
		return normalizeTime(*t, loc)
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return nil, fmt.Errorf("want time.Time or string, got %T", v)
	}
}

func normalizeDuration(v any, _ *time.Location) (any, error) {
	var d time.Duration
	switch t := v.(type) {
	case time.Duration:
		d = t
	case string:
		s := strings.ToUpper(strings.TrimSpace(t))
		var err error
		if strings.HasPrefix(s, "P") {
			d, err = model.ParseDuration(s)
		} else {
			d, err = time.ParseDuration(strings.TrimSpace(t))
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("want time.Duration or string, got %T", v)
	}
	if d <= 0 {
		return nil, fmt.Errorf("duration %s is not positive", d)
	}
	return d, nil
}

func normalizeURL(v any, _ *time.Location) (any, error) {
	var u *url.URL
	switch t := v.(type) {
	case *url.URL:
		u = t
	case url.URL:
		u = &t
	case string:
		parsed, err := url.Parse(strings.TrimSpace(t))
		if err != nil {
			return nil, err
		}
		u = parsed
	default:
		return nil, fmt.Errorf("want URL or string, got %T", v)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("url %q is not absolute", u.String())
	}
	return u.String(), nil
}

// normalizeAddress turns "a@b.c", "Name <a@b.c>" or "mailto:a@b.c" into a
// mailto: URI.
func normalizeAddress(v any, _ *time.Location) (any, error) {
	s, ok := asString(v)
	if !ok {
		return nil, fmt.Errorf("want string, got %T", v)
	}
	s = strings.TrimSpace(s)
	if len(s) > len("mailto:") && strings.EqualFold(s[:len("mailto:")], "mailto:") {
		s = s[len("mailto:"):]
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", s, err)
	}
	return "mailto:" + addr.Address, nil
}

func normalizeAddresses(v any, loc *time.Location) (any, error) {
	items, err := stringList(v)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		a, err := normalizeAddress(item, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, a.(string))
	}
	return out, nil
}

// normalizeTextList returns nil for an empty list so that the field is
// cleared rather than emitted without a value.
func normalizeTextList(v any, _ *time.Location) (any, error) {
	items, err := stringList(v)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	for _, item := range items {
		if !utf8.ValidString(item) {
			return nil, fmt.Errorf("list item %q is not valid UTF-8", item)
		}
	}
	return items, nil
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := asString(item)
			if !ok {
				return nil, fmt.Errorf("want string list item, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want string or []string, got %T", v)
	}
}

func normalizeStatus(v any, _ *time.Location) (any, error) {
	s, ok := asString(v)
	if !ok {
		return nil, fmt.Errorf("want string, got %T", v)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if !validStatus[s] {
		return nil, fmt.Errorf("unknown event status %q", s)
	}
	return s, nil
}

func normalizeSequence(v any, _ *time.Location) (any, error) {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		if t != float64(int(t)) {
			return nil, fmt.Errorf("sequence %v is not an integer", t)
		}
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, err
		}
		n = parsed
	default:
		return nil, fmt.Errorf("want integer, got %T", v)
	}
	if n < 0 {
		return nil, fmt.Errorf("sequence %d is negative", n)
	}
	return n, nil
}

// normalizeRRule validates a recurrence rule. No occurrences are expanded.
func normalizeRRule(v any, _ *time.Location) (any, error) {
	switch t := v.(type) {
	case *rrule.ROption:
		opt := *t
		return &opt, nil
	case rrule.ROption:
		return &t, nil
	case string:
		s := strings.TrimSpace(t)
		if len(s) >= len("RRULE:") && strings.EqualFold(s[:len("RRULE:")], "RRULE:") {
			s = s[len("RRULE:"):]
		}
		opt, err := rrule.StrToROption(s)
		if err != nil {
			return nil, err
		}
		return opt, nil
	default:
		return nil, fmt.Errorf("want rrule.ROption or string, got %T", v)
	}
}

func normalizeAlarms(v any, _ *time.Location) (any, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []int:
		for _, n := range t {
			items = append(items, n)
		}
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []time.Duration:
		for _, d := range t {
			items = append(items, d)
		}
	case []model.Alarm:
		for _, a := range t {
			items = append(items, a)
		}
	default:
		items = []any{v}
	}
	if len(items) == 0 {
		return nil, nil
	}

	alarms := make([]model.Alarm, 0, len(items))
	for _, item := range items {
		a, err := model.ParseAlarm(item)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, nil
}
