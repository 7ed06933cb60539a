package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"nowcal/internal/config"
	"nowcal/internal/ics"
	appLog "nowcal/internal/log"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	format     string
	verbose    bool

	uid         string
	start       string
	end         string
	duration    string
	summary     string
	description string
	location    string
	url         string
	organizer   string
	status      string
	rrule       string
	attendees   []string
	categories  []string
	alarms      []string
}

// propertyFlags maps flag names to event property keys.
var propertyFlags = map[string]string{
	"uid":         "uid",
	"start":       "start",
	"end":         "end",
	"duration":    "duration",
	"summary":     "summary",
	"description": "description",
	"location":    "location",
	"url":         "url",
	"organizer":   "organizer",
	"status":      "status",
	"rrule":       "rrule",
	"attendee":    "attendees",
	"category":    "categories",
	"alarm":       "alarms",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags flagConfig

	cmd := &cobra.Command{
		Use:   "nowcal",
		Short: "Generate an iCalendar (.ics) event",
		Long: `nowcal compiles one calendar event from flags into RFC 5545 text.

Output formats:
  plain  the .ics document on stdout (default)
  raw    one content line per output line, unfolded
  file   write a temporary .ics file and print its path

Example:
  nowcal --start 2024-01-01T10:00:00Z --end 2024-01-01T10:30:00Z \
    --summary Standup --alarm 15m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, flags)
			if err != nil {
				appLog.Error("nowcal failed", err)
			}
			_ = appLog.Sync()
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", defaultConfigPath(), "Path to config file")
	f.StringVarP(&flags.format, "format", "f", "plain", "Output format: plain, raw or file")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	f.StringVar(&flags.uid, "uid", "", "Event UID (derived from content if omitted)")
	f.StringVar(&flags.start, "start", "", "Start time, e.g. 2024-01-01T10:00:00Z")
	f.StringVar(&flags.end, "end", "", "End time")
	f.StringVar(&flags.duration, "duration", "", "Duration instead of --end, e.g. 30m or PT30M")
	f.StringVarP(&flags.summary, "summary", "s", "", "Event title")
	f.StringVar(&flags.description, "description", "", "Event description")
	f.StringVar(&flags.location, "location", "", "Event location")
	f.StringVar(&flags.url, "url", "", "Event URL")
	f.StringVar(&flags.organizer, "organizer", "", "Organizer e-mail")
	f.StringVar(&flags.status, "status", "", "TENTATIVE, CONFIRMED or CANCELLED")
	f.StringVar(&flags.rrule, "rrule", "", "Recurrence rule, e.g. FREQ=WEEKLY;COUNT=4")
	f.StringArrayVar(&flags.attendees, "attendee", nil, "Attendee e-mail (repeatable)")
	f.StringArrayVar(&flags.categories, "category", nil, "Category (repeatable)")
	f.StringArrayVar(&flags.alarms, "alarm", nil, "Alarm offset before start, e.g. 15m or -PT1H (repeatable)")

	return cmd
}

func run(cmd *cobra.Command, flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}

	level, _ := appLog.ParseLevel(conf.LogLevel)
	if flags.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Debug("effective config",
		"config_path", flags.configPath,
		"product_id", conf.ProductID,
		"method", conf.Method,
		"timezone", conf.Timezone,
		"fold_lines", conf.FoldLines,
		"format", flags.format,
	)

	event, err := ics.Create(collectProps(cmd, flags), ics.FromConfig(conf))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(flags.format) {
	case "plain":
		_, err = fmt.Fprint(out, event.Plain()+ics.CRLF)
	case "raw":
		_, err = fmt.Fprintln(out, strings.Join(event.Raw(), "\n"))
	case "file":
		var path string
		path, err = event.File()
		if err == nil {
			_, err = fmt.Fprintln(out, path)
		}
	default:
		err = fmt.Errorf("unknown format %q", flags.format)
	}
	return err
}

// collectProps returns the properties for flags the user actually set.
func collectProps(cmd *cobra.Command, flags flagConfig) map[string]any {
	values := map[string]any{
		"uid":         flags.uid,
		"start":       flags.start,
		"end":         flags.end,
		"duration":    flags.duration,
		"summary":     flags.summary,
		"description": flags.description,
		"location":    flags.location,
		"url":         flags.url,
		"organizer":   flags.organizer,
		"status":      flags.status,
		"rrule":       flags.rrule,
		"attendee":    flags.attendees,
		"category":    flags.categories,
		"alarm":       flags.alarms,
	}

	props := make(map[string]any)
	for name, key := range propertyFlags {
		if cmd.Flags().Changed(name) {
			props[key] = values[name]
		}
	}
	return props
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "nowcal.yaml")
	}
	return filepath.Join(dir, "nowcal", "config.yaml")
}
