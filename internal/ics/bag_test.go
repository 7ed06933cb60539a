package ics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"nowcal/internal/model"
)

func TestSetIgnoresUnknownKeys(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.Set("summary", "Standup"))

	for _, key := range []string{"color", "START", "Summary", "output", ""} {
		assert.NoError(t, bag.Set(key, "x"), key)
		assert.Nil(t, bag.Get(key), key)
		assert.False(t, bag.Has(key), key)
	}
	assert.Equal(t, "Standup", bag.Get("summary"))
}

func TestTitleAliasesSummary(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.Set("title", "Standup"))

	assert.Equal(t, "Standup", bag.Get("summary"))
	assert.Equal(t, "Standup", bag.Get("title"))
}

func TestSetResolvesCallables(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.Set("summary", func() string { return "Retro" }))
	require.NoError(t, bag.Set("start", func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, bag.Set("location", func() any { return nil }))

	assert.Equal(t, "Retro", bag.Get("summary"))
	assert.True(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Equal(bag.Get("start").(time.Time)))
	assert.False(t, bag.Has("location"))
}

func TestSetNilClears(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.Set("summary", "Standup"))
	require.NoError(t, bag.Set("summary", nil))
	assert.False(t, bag.Has("summary"))
}

func TestSetTimestamps(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []any{
		"2024-01-01T10:00:00Z",
		"2024-01-01T11:00:00+01:00",
		"20240101T100000Z",
		"2024-01-01 10:00",
		want,
		&want,
		want.In(time.FixedZone("X", -5*3600)),
	} {
		bag := NewPropertyBag(nil)
		require.NoError(t, bag.Set("start", in), "%v", in)
		got := bag.Get("start").(time.Time)
		assert.True(t, want.Equal(got), "%v -> %v", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestFloatingTimeUsesBagLocation(t *testing.T) {
	bag := NewPropertyBag(time.FixedZone("UTC+2", 2*3600))
	require.NoError(t, bag.Set("start", "2024-01-01 10:00"))

	got := bag.Get("start").(time.Time)
	assert.True(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC).Equal(got))
}

func TestSetRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"start", "next tuesday"},
		{"end", 42},
		{"uid", "  "},
		{"duration", "-1h"},
		{"duration", "P1Y"},
		{"url", "relative/path"},
		{"organizer", "not an address"},
		{"attendees", []any{"a@example.com", 7}},
		{"status", "maybe"},
		{"sequence", -1},
		{"sequence", "two"},
		{"rrule", "FREQ=SOMETIMES"},
		{"alarms", []any{15, "whenever"}},
		{"summary", 3.14},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			bag := NewPropertyBag(nil)
			err := bag.Set(tt.key, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidValue)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			f, _ := LookupField(tt.key)
			assert.Equal(t, f, verr.Field)
			assert.False(t, bag.Has(tt.key))
		})
	}
}

func TestRejectedValueKeepsPrevious(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.Set("url", "https://example.com/meet"))
	require.Error(t, bag.Set("url", "::"))
	assert.Equal(t, "https://example.com/meet", bag.Get("url"))
}

func TestSetManyJoinsErrors(t *testing.T) {
	bag := NewPropertyBag(nil)
	err := bag.SetMany(map[string]any{
		"start":   "bad",
		"url":     "relative",
		"summary": "Planning",
		"unknown": "ignored",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "start")
	assert.Contains(t, err.Error(), "url")
	assert.Equal(t, "Planning", bag.Get("summary"))
}

func TestNormalizedShapes(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.SetMany(map[string]any{
		"organizer":  "Jane Doe <jane@example.com>",
		"attendees":  []string{"a@example.com", "mailto:b@example.com"},
		"categories": "work",
		"status":     "confirmed",
		"sequence":   "2",
		"duration":   "PT1H30M",
		"rrule":      "RRULE:FREQ=WEEKLY;COUNT=3",
		"alarms":     []any{15, "1h", model.Alarm{Before: time.Minute, Action: "audio"}},
	}))

	assert.Equal(t, "mailto:jane@example.com", bag.Get("organizer"))
	assert.Equal(t, []string{"mailto:a@example.com", "mailto:b@example.com"}, bag.Get("attendees"))
	assert.Equal(t, []string{"work"}, bag.Get("categories"))
	assert.Equal(t, "CONFIRMED", bag.Get("status"))
	assert.Equal(t, 2, bag.Get("sequence"))
	assert.Equal(t, 90*time.Minute, bag.Get("duration"))

	opt, ok := bag.Get("rrule").(*rrule.ROption)
	require.True(t, ok)
	assert.Equal(t, rrule.WEEKLY, opt.Freq)
	assert.Equal(t, 3, opt.Count)

	alarms := bag.Get("alarms").([]model.Alarm)
	require.Len(t, alarms, 3)
	assert.Equal(t, 15*time.Minute, alarms[0].Before)
	assert.Equal(t, time.Hour, alarms[1].Before)
	assert.Equal(t, model.ActionAudio, alarms[2].Action)
}

func TestTypedSetters(t *testing.T) {
	bag := NewPropertyBag(nil)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	require.NoError(t, bag.SetStart(start))
	require.NoError(t, bag.SetEnd(start.Add(time.Hour)))
	require.NoError(t, bag.SetSummary("Lunch"))
	require.NoError(t, bag.SetDescription("Tacos"))
	require.NoError(t, bag.SetLocation("Cafe"))
	require.NoError(t, bag.SetURL("https://example.com"))
	assert.Error(t, bag.SetURL("nope"))
	require.NoError(t, bag.AddAlarm(model.Alarm{Before: 10 * time.Minute}))
	require.NoError(t, bag.AddAlarm(model.Alarm{Before: 5 * time.Minute}))
	assert.Error(t, bag.AddAlarm(model.Alarm{Action: "EMAIL"}))

	assert.True(t, start.Equal(bag.Get("start").(time.Time)))
	assert.Equal(t, "Lunch", bag.Get("summary"))
	alarms := bag.Get("alarms").([]model.Alarm)
	require.Len(t, alarms, 2)
	assert.Equal(t, 10*time.Minute, alarms[0].Before)
	assert.Equal(t, model.ActionDisplay, alarms[0].Action)
	assert.Equal(t, 5*time.Minute, alarms[1].Before)
}

func TestTypedSettersValidate(t *testing.T) {
	bag := NewPropertyBag(nil)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bag.SetStart(start))

	err := bag.SetStart(time.Time{})
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.True(t, start.Equal(bag.Get("start").(time.Time)))

	assert.ErrorIs(t, bag.SetEnd(time.Time{}), ErrInvalidValue)
	assert.False(t, bag.Has("end"))

	assert.ErrorIs(t, bag.SetSummary("bad \xff"), ErrInvalidValue)
	assert.False(t, bag.Has("summary"))
}

func TestEmptyListsClearField(t *testing.T) {
	bag := NewPropertyBag(nil)
	require.NoError(t, bag.SetMany(map[string]any{
		"categories": []string{"work"},
		"attendees":  "a@example.com",
		"alarms":     15,
	}))

	require.NoError(t, bag.SetMany(map[string]any{
		"categories": []string{},
		"attendees":  []any{},
		"alarms":     []any{},
	}))
	assert.False(t, bag.Has("categories"))
	assert.False(t, bag.Has("attendees"))
	assert.False(t, bag.Has("alarms"))
}

func TestTextRejectsInvalidUTF8(t *testing.T) {
	bag := NewPropertyBag(nil)
	for _, key := range []string{"summary", "description", "location"} {
		assert.ErrorIs(t, bag.Set(key, "caf\xe9"), ErrInvalidValue, key)
		assert.False(t, bag.Has(key), key)
	}
	assert.ErrorIs(t, bag.Set("categories", []string{"ok", "\xff"}), ErrInvalidValue)
	assert.False(t, bag.Has("categories"))
}
