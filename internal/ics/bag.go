package ics

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	appLog "nowcal/internal/log"
	"nowcal/internal/model"
)

// ErrInvalidValue matches every *ValidationError via errors.Is.
var ErrInvalidValue = errors.New("invalid value")

// ValidationError reports a value whose shape the field cannot format.
type ValidationError struct {
	Field Field
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ics: invalid %s value %#v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidValue
}

// PropertyBag holds the normalized properties of one event. Only keys known
// to LookupField can be stored. A PropertyBag is not safe for concurrent use.
type PropertyBag struct {
	values [fieldCount]any

	// loc interprets timestamps that carry no zone offset.
	loc *time.Location
}

// NewPropertyBag returns an empty bag. A nil loc means UTC.
func NewPropertyBag(loc *time.Location) *PropertyBag {
	if loc == nil {
		loc = time.UTC
	}
	return &PropertyBag{loc: loc}
}

// Set stores value under key. Unknown keys are ignored and return nil.
// A zero-argument function value is called and its result stored. A nil
// value clears the key. Values the field cannot format are rejected with a
// *ValidationError and the previous value is kept.
func (b *PropertyBag) Set(key string, value any) error {
	f, ok := LookupField(key)
	if !ok {
		appLog.Debug("ics: ignoring unknown property", "key", key)
		return nil
	}
	return b.SetField(f, value)
}

// SetField is Set for a known Field.
func (b *PropertyBag) SetField(f Field, value any) error {
	if !f.valid() {
		return nil
	}

	value = resolve(value)
	if value == nil {
		b.values[f] = nil
		return nil
	}

	norm, err := normalizers[f](value, b.loc)
	if err != nil {
		return &ValidationError{Field: f, Value: value, Err: err}
	}
	b.values[f] = norm
	return nil
}

// SetMany calls Set for each entry in key order and joins the errors.
func (b *PropertyBag) SetMany(props map[string]any) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := b.Set(k, props[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the normalized value stored under key, or nil when the key is
// unknown or unset.
func (b *PropertyBag) Get(key string) any {
	f, ok := LookupField(key)
	if !ok {
		return nil
	}
	return b.values[f]
}

// Has reports whether key holds a non-nil value.
func (b *PropertyBag) Has(key string) bool {
	return b.Get(key) != nil
}

func (b *PropertyBag) has(f Field) bool {
	return b.values[f] != nil
}

func (b *PropertyBag) get(f Field) any {
	return b.values[f]
}

// The typed setters validate the same way Set does for their key.

func (b *PropertyBag) SetStart(t time.Time) error { return b.SetField(FieldStart, t) }

func (b *PropertyBag) SetEnd(t time.Time) error { return b.SetField(FieldEnd, t) }

func (b *PropertyBag) SetSummary(s string) error { return b.SetField(FieldSummary, s) }

func (b *PropertyBag) SetDescription(s string) error { return b.SetField(FieldDescription, s) }

func (b *PropertyBag) SetLocation(s string) error { return b.SetField(FieldLocation, s) }

func (b *PropertyBag) SetURL(u string) error {
	return b.SetField(FieldURL, u)
}

// AddAlarm appends an alarm after any already present.
func (b *PropertyBag) AddAlarm(a model.Alarm) error {
	a, err := a.Normalize()
	if err != nil {
		return &ValidationError{Field: FieldAlarms, Value: a, Err: err}
	}
	alarms, _ := b.values[FieldAlarms].([]model.Alarm)
	b.values[FieldAlarms] = append(append([]model.Alarm(nil), alarms...), a)
	return nil
}

// resolve calls zero-argument single-result functions and maps typed nils
// to nil.
func resolve(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() || rv.Type().NumIn() != 0 || rv.Type().NumOut() != 1 {
			return v
		}
		return resolve(rv.Call(nil)[0].Interface())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}
