package ics

import (
	"fmt"
	"os"
	"strings"
	"time"

	"nowcal/internal/config"
	appLog "nowcal/internal/log"
)

// CRLF separates content lines on the wire.
const CRLF = "\r\n"

// Options control calendar-level output. The zero value is not useful; use
// the With* helpers on top of the defaults.
type Options struct {
	ProductID string
	Method    string

	// Location interprets timestamps given without a zone offset.
	Location *time.Location

	TempDir    string
	FilePrefix string

	Fold      bool
	DeriveUID bool
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		ProductID:  config.DefaultProductID,
		Location:   time.UTC,
		FilePrefix: config.DefaultFilePrefix,
		Fold:       true,
		DeriveUID:  true,
	}
}

// WithProductID sets PRODID. Line breaks are replaced with spaces.
func WithProductID(id string) Option {
	return func(o *Options) { o.ProductID = config.CleanProductID(id) }
}

// WithMethod sets the calendar METHOD: PUBLISH, REQUEST or CANCEL. Any other
// value clears it.
func WithMethod(method string) Option {
	return func(o *Options) {
		o.Method = config.CleanMethod(method)
		if o.Method == "" && strings.TrimSpace(method) != "" {
			appLog.Debug("ics: ignoring unknown calendar method", "method", method)
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(o *Options) { o.Location = loc }
}

func WithTempDir(dir string) Option {
	return func(o *Options) { o.TempDir = dir }
}

func WithFilePrefix(prefix string) Option {
	return func(o *Options) { o.FilePrefix = prefix }
}

// WithFolding toggles 75-octet line folding in Plain and File output.
func WithFolding(fold bool) Option {
	return func(o *Options) { o.Fold = fold }
}

// WithDerivedUID toggles the content-derived UID emitted when no uid is set.
func WithDerivedUID(derive bool) Option {
	return func(o *Options) { o.DeriveUID = derive }
}

// FromConfig applies every setting of cfg. An unknown timezone falls back
// to UTC.
func FromConfig(cfg *config.Config) Option {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		o.ProductID = config.CleanProductID(cfg.ProductID)
		o.Method = config.CleanMethod(cfg.Method)
		o.TempDir = cfg.TempDir
		o.FilePrefix = cfg.FilePrefix
		o.Fold = cfg.FoldLines
		o.DeriveUID = cfg.DeriveUID

		loc, err := cfg.Location()
		if err != nil {
			appLog.Error("ics: failed to load timezone; falling back to UTC", err, "timezone", cfg.Timezone)
			loc = time.UTC
		}
		o.Location = loc
	}
}

// Event compiles one calendar event. Every output call recompiles from the
// current bag. An Event is not safe for concurrent use.
type Event struct {
	bag    *PropertyBag
	opts   Options
	output []string
}

// New returns an Event with an empty property bag.
func New(opts ...Option) *Event {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.ProductID == "" {
		o.ProductID = config.DefaultProductID
	}
	return &Event{
		bag:  NewPropertyBag(o.Location),
		opts: o,
	}
}

// Create returns an Event holding props. Unknown keys are ignored; invalid
// values are reported as joined *ValidationError values.
func Create(props map[string]any, opts ...Option) (*Event, error) {
	e := New(opts...)
	if err := e.bag.SetMany(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Bag exposes the property bag for further edits.
func (e *Event) Bag() *PropertyBag {
	return e.bag
}

// Set is shorthand for e.Bag().Set.
func (e *Event) Set(key string, value any) error {
	return e.bag.Set(key, value)
}

// Raw returns the compiled content lines, unfolded and without separators.
func (e *Event) Raw() []string {
	e.compile()
	return append([]string(nil), e.output...)
}

// Plain returns the compiled lines joined with CRLF. The result carries no
// trailing CRLF.
func (e *Event) Plain() string {
	lines := e.Raw()
	if e.opts.Fold {
		for i, line := range lines {
			lines[i] = foldLine(line)
		}
	}
	return strings.Join(lines, CRLF)
}

func (e *Event) String() string {
	return e.Plain()
}

// File writes Plain output plus a trailing CRLF to a new .ics file in the
// temp directory and returns its path. The caller owns the file.
func (e *Event) File() (string, error) {
	f, err := os.CreateTemp(e.opts.TempDir, e.opts.FilePrefix+"*.ics")
	if err != nil {
		return "", fmt.Errorf("ics: create temp file: %w", err)
	}
	name := f.Name()

	data := e.Plain() + CRLF
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("ics: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("ics: close %s: %w", name, err)
	}

	appLog.Info("ics file written", "path", name, "bytes", len(data))
	return name, nil
}

// RawOf is Create(props, opts...).Raw().
func RawOf(props map[string]any, opts ...Option) ([]string, error) {
	e, err := Create(props, opts...)
	if err != nil {
		return nil, err
	}
	return e.Raw(), nil
}

// PlainOf is Create(props, opts...).Plain().
func PlainOf(props map[string]any, opts ...Option) (string, error) {
	e, err := Create(props, opts...)
	if err != nil {
		return "", err
	}
	return e.Plain(), nil
}

// FileOf is Create(props, opts...).File().
func FileOf(props map[string]any, opts ...Option) (string, error) {
	e, err := Create(props, opts...)
	if err != nil {
		return "", err
	}
	return e.File()
}
