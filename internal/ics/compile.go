package ics

import (
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"nowcal/internal/model"
)

const (
	calendarVersion  = "2.0"
	calendarScale    = "GREGORIAN"
	defaultAlarmText = "Reminder"
)

// uidNamespace scopes derived UIDs so they never collide with UUIDs other
// tools derive from the same text.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("nowcal.invalid"))

// compile rebuilds e.output from the bag.
func (e *Event) compile() *Event {
	e.output = e.output[:0]

	e.beginCalendar()
	e.beginEvent()
	e.addAlarms()
	e.endEvent()
	e.endCalendar()

	return e
}

func (e *Event) beginCalendar() {
	e.output = append(e.output,
		begin(ical.ComponentVCalendar),
		string(ical.PropertyVersion)+":"+calendarVersion,
		string(ical.PropertyProductId)+":"+e.opts.ProductID,
		string(ical.PropertyCalscale)+":"+calendarScale,
	)
	if e.opts.Method != "" {
		e.output = append(e.output, string(ical.PropertyMethod)+":"+e.opts.Method)
	}
}

func (e *Event) beginEvent() {
	e.output = append(e.output, begin(ical.ComponentVEvent))

	body := e.parameterLines(eventFields)
	if !e.bag.has(FieldUID) && e.opts.DeriveUID {
		uid := deriveUID(body, e.alarms())
		body = append([]string{ParameterKey(FieldUID) + ":" + uid}, body...)
	}
	e.output = append(e.output, body...)
}

// parameterLines emits KEY:VALUE for every field the bag has, in the order
// given. Repeated fields emit one line per element.
func (e *Event) parameterLines(fields []Field) []string {
	var lines []string
	for _, f := range fields {
		if !e.bag.has(f) {
			continue
		}
		if f == FieldDuration && e.bag.has(FieldEnd) {
			// DTEND and DURATION are mutually exclusive; DTEND wins.
			continue
		}
		if f.repeated() {
			for _, item := range e.bag.get(f).([]string) {
				lines = append(lines, ParameterKey(f)+":"+item)
			}
			continue
		}
		lines = append(lines, e.parameter(f))
	}
	return lines
}

func (e *Event) parameter(f Field) string {
	return ParameterKey(f) + ":" + e.parameterValue(f)
}

func (e *Event) parameterValue(f Field) string {
	return Cast(f, e.bag.get(f))
}

func (e *Event) alarms() []model.Alarm {
	alarms, _ := e.bag.get(FieldAlarms).([]model.Alarm)
	return alarms
}

func (e *Event) addAlarms() {
	for _, a := range e.alarms() {
		e.output = append(e.output, begin(ical.ComponentVAlarm))
		e.output = append(e.output, e.alarmLines(a)...)
		e.output = append(e.output, end(ical.ComponentVAlarm))
	}
}

// alarmLines emits ACTION, TRIGGER and, for DISPLAY alarms, DESCRIPTION.
func (e *Event) alarmLines(a model.Alarm) []string {
	lines := []string{
		string(ical.ComponentPropertyAction) + ":" + a.Action,
		string(ical.ComponentPropertyTrigger) + ":" + a.Trigger(),
	}
	if a.Action != model.ActionDisplay {
		return lines
	}

	text := a.Description
	if text == "" {
		if summary, ok := e.bag.get(FieldSummary).(string); ok && summary != "" {
			text = summary
		} else {
			text = defaultAlarmText
		}
	}
	return append(lines, string(ical.ComponentPropertyDescription)+":"+escapeText(text))
}

func (e *Event) endEvent() {
	e.output = append(e.output, end(ical.ComponentVEvent))
}

func (e *Event) endCalendar() {
	e.output = append(e.output, end(ical.ComponentVCalendar))
}

func begin(c ical.ComponentType) string {
	return "BEGIN:" + string(c)
}

func end(c ical.ComponentType) string {
	return "END:" + string(c)
}

// deriveUID hashes the compiled event body so the same properties always
// yield the same UID.
func deriveUID(body []string, alarms []model.Alarm) string {
	var b strings.Builder
	for _, line := range body {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, a := range alarms {
		b.WriteString(a.Action + a.Trigger() + a.Description)
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(uidNamespace, []byte(b.String())).String()
}
