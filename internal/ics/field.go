package ics

import (
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"
)

// Field identifies one allowed event property. The set of Field values is
// the allow-list: nothing else can be stored in a PropertyBag.
type Field int

const (
	FieldUID Field = iota
	FieldStamp
	FieldCreated
	FieldStart
	FieldEnd
	FieldDuration
	FieldSummary
	FieldDescription
	FieldLocation
	FieldURL
	FieldOrganizer
	FieldAttendees
	FieldCategories
	FieldStatus
	FieldSequence
	FieldRRule
	FieldAlarms

	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldUID:         "uid",
	FieldStamp:       "stamp",
	FieldCreated:     "created",
	FieldStart:       "start",
	FieldEnd:         "end",
	FieldDuration:    "duration",
	FieldSummary:     "summary",
	FieldDescription: "description",
	FieldLocation:    "location",
	FieldURL:         "url",
	FieldOrganizer:   "organizer",
	FieldAttendees:   "attendees",
	FieldCategories:  "categories",
	FieldStatus:      "status",
	FieldSequence:    "sequence",
	FieldRRule:       "rrule",
	FieldAlarms:      "alarms",
}

// fieldAliases are extra keys accepted by LookupField.
var fieldAliases = map[string]Field{
	"title": FieldSummary,
}

// eventFields is the emission order of VEVENT properties. Alarms are
// compiled separately as VALARM blocks.
var eventFields = []Field{
	FieldUID,
	FieldStamp,
	FieldCreated,
	FieldStart,
	FieldEnd,
	FieldDuration,
	FieldSummary,
	FieldDescription,
	FieldLocation,
	FieldURL,
	FieldOrganizer,
	FieldAttendees,
	FieldCategories,
	FieldStatus,
	FieldSequence,
	FieldRRule,
}

// LookupField maps a property key to its Field. Keys are matched exactly.
func LookupField(key string) (Field, bool) {
	for f, name := range fieldNames {
		if name == key {
			return Field(f), true
		}
	}
	f, ok := fieldAliases[key]
	return f, ok
}

// Fields returns every allowed key in emission order.
func Fields() []string {
	out := make([]string, 0, fieldCount)
	for _, f := range eventFields {
		out = append(out, f.String())
	}
	return append(out, FieldAlarms.String())
}

func (f Field) String() string {
	if !f.valid() {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

func (f Field) valid() bool {
	return f >= 0 && f < fieldCount
}

// ParameterKey returns the iCalendar property name for f: the upper-cased
// key, with date fields prefixed by DT and list fields singularized.
func ParameterKey(f Field) string {
	key := strings.ToUpper(f.String())

	switch f {
	case FieldStart, FieldEnd:
		return "DT" + key
	case FieldStamp:
		return string(ical.ComponentPropertyDtstamp)
	case FieldAttendees:
		return string(ical.ComponentPropertyAttendee)
	default:
		return key
	}
}

// repeated reports whether each list element of f becomes its own line.
func (f Field) repeated() bool {
	return f == FieldAttendees
}
