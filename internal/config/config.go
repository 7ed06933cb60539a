package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: Load creates a default config file on first run; Save always writes
// with 0600 permissions.

const (
	DefaultProductID  = "-//NowCal//NowCal Event//EN"
	DefaultTimezone   = "UTC"
	DefaultFilePrefix = "event_"
	DefaultLogLevel   = "info"
)

// Config is the top-level application configuration.
type Config struct {
	// ProductID is emitted as the PRODID line of every calendar.
	ProductID string `yaml:"product_id" json:"product_id"`

	// Method, if set, is emitted as the calendar METHOD line. Supported
	// values: "PUBLISH", "REQUEST", "CANCEL".
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// Timezone is the IANA timezone used to interpret timestamps that carry
	// no offset (e.g. "2024-01-01 10:00"). Output is always UTC.
	Timezone string `yaml:"timezone" json:"timezone"`

	// TempDir is where .ics files are created. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir,omitempty" json:"temp_dir,omitempty"`

	// FilePrefix is the basename prefix of created .ics files.
	FilePrefix string `yaml:"file_prefix" json:"file_prefix"`

	// FoldLines toggles RFC 5545 line folding at 75 octets.
	FoldLines bool `yaml:"fold_lines" json:"fold_lines"`

	// DeriveUID emits a content-derived UID when none is supplied.
	DeriveUID bool `yaml:"derive_uid" json:"derive_uid"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProductID:  DefaultProductID,
		Timezone:   DefaultTimezone,
		FilePrefix: DefaultFilePrefix,
		FoldLines:  true,
		DeriveUID:  true,
		LogLevel:   DefaultLogLevel,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	c.ProductID = CleanProductID(c.ProductID)
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.FilePrefix == "" {
		c.FilePrefix = DefaultFilePrefix
	}

	c.Method = CleanMethod(c.Method)

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = DefaultLogLevel
	}
}

// CleanProductID turns line breaks in id into spaces. A blank id becomes
// DefaultProductID.
func CleanProductID(id string) string {
	id = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(id))
	if id == "" {
		return DefaultProductID
	}
	return id
}

// CleanMethod upper-cases method. Anything other than PUBLISH, REQUEST or
// CANCEL becomes "", so no METHOD is emitted.
func CleanMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "PUBLISH", "REQUEST", "CANCEL":
		return method
	default:
		return ""
	}
}

// Location resolves Timezone. An unknown zone name is an error.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML over the defaults, so omitted keys keep their default
//   - normalize
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".nowcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
