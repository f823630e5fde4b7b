package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration required for a command mode is
// present and in range. Errors accumulate so the operator sees the whole
// list at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	add := func(msg string) { problems = append(problems, msg) }

	checkCommon := func() {
		if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 16 {
			add("pipeline.concurrency must be between 1 and 16")
		}
		if c.Data.BDCDir == "" {
			add("data.bdc_dir is required")
		}
	}

	switch mode {
	case "run":
		checkCommon()
		if c.Data.TabblockDir == "" {
			add("data.tabblock_dir is required")
		}
		if c.Output.Dir == "" {
			add("output.dir is required")
		}
		for _, f := range c.Output.Formats {
			switch f {
			case "geojson", "gpkg", "csv", "postgres":
			default:
				add("output.formats: unknown format " + f)
			}
		}
		if formatEnabled(c.Output.Formats, "postgres") && c.Postgres.DatabaseURL == "" {
			add("postgres.database_url is required when the postgres format is enabled")
		}
	case "csvagg":
		checkCommon()
		if c.Output.Dir == "" {
			add("output.dir is required")
		}
	case "fetch":
		if c.Data.TabblockDir == "" {
			add("data.tabblock_dir is required")
		}
		if c.Census.Year < 2020 {
			add("census.year must be 2020 or later")
		}
	case "status":
		if c.Output.RunLog == "" {
			add("output.run_log is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
		if c.Output.Dir == "" {
			add("output.dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func formatEnabled(formats []string, name string) bool {
	for _, f := range formats {
		if f == name {
			return true
		}
	}
	return false
}
