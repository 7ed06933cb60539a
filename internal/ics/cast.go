package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"nowcal/internal/model"
)

// DateTimeLayout is the UTC DATE-TIME form used for every timestamp.
const DateTimeLayout = "20060102T150405Z"

// Caster formats a normalized value as an iCalendar property value.
type Caster func(v any) string

// casters holds the formatting function per field. Fields without an entry
// store a value that is already in wire form.
var casters = map[Field]Caster{
	FieldStamp:       castDateTime,
	FieldCreated:     castDateTime,
	FieldStart:       castDateTime,
	FieldEnd:         castDateTime,
	FieldDuration:    castDuration,
	FieldSummary:     castText,
	FieldDescription: castText,
	FieldLocation:    castText,
	FieldCategories:  castTextList,
	FieldSequence:    castInt,
	FieldRRule:       castRRule,
}

// HasCaster reports whether f has a registered caster.
func HasCaster(f Field) bool {
	_, ok := casters[f]
	return ok
}

// Cast formats v with the caster registered for f, or returns v unchanged
// when it is already a string.
func Cast(f Field, v any) string {
	if c, ok := casters[f]; ok {
		return c(v)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func castDateTime(v any) string {
	return v.(time.Time).UTC().Format(DateTimeLayout)
}

func castDuration(v any) string {
	return model.FormatDuration(v.(time.Duration))
}

func castText(v any) string {
	return escapeText(v.(string))
}

// escapeText escapes s as a TEXT value. CRLF and bare CR are read as line
// breaks so that no raw CR reaches the output.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return ical.ToText(s)
}

func castTextList(v any) string {
	items := v.([]string)
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = escapeText(item)
	}
	return strings.Join(escaped, ",")
}

func castInt(v any) string {
	return strconv.Itoa(v.(int))
}

func castRRule(v any) string {
	return v.(*rrule.ROption).RRuleString()
}
