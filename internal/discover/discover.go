// Package discover locates BDC availability files and reference tables in
// the per-state directory layout, selecting the latest filing of each.
package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/fetcher"
)

// bdcFilePattern matches per-state fixed-broadband availability files,
// e.g. bdc_08_Cable_fixed_broadband_J24_15dec2024.zip. Group 1+2 form the
// version-stable base name; group 3 is the filing date; group 4 the kind.
var bdcFilePattern = regexp.MustCompile(`(bdc_\d{2}.*_fixed_broadband_)([A-Z]\d{2}_)(.*)\.(csv|zip)`)

// filingDateLayout is the date embedded in FCC file names, e.g. 15dec2024.
const filingDateLayout = "02Jan2006"

// parseFilingDate parses a filing date regardless of month capitalization;
// the FCC publishes lowercase month abbreviations.
func parseFilingDate(s string) (time.Time, error) {
	if len(s) == len(filingDateLayout) {
		s = s[:2] + strings.ToUpper(s[2:3]) + strings.ToLower(s[3:5]) + s[5:]
	}
	return time.Parse(filingDateLayout, s)
}

// SourceFile is one availability file selected for processing.
type SourceFile struct {
	Path  string
	Base  string // pattern base: name through the version token
	Date  time.Time
	IsZip bool
}

// Availability scans a state's bdc directory and returns the files to
// process: one per base name, preferring .zip over .csv for the same
// filing and the latest filing date per base. macOS resource-fork files
// (._*) are ignored.
func Availability(bdcDir string) ([]SourceFile, error) {
	entries, err := os.ReadDir(bdcDir)
	if err != nil {
		return nil, eris.Wrapf(err, "discover: read bdc dir %s", bdcDir)
	}

	log := zap.L().With(zap.String("component", "discover"), zap.String("dir", bdcDir))

	latest := make(map[string]SourceFile)
	var order []string

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "._") {
			continue
		}
		m := bdcFilePattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		date, err := parseFilingDate(m[3])
		if err != nil {
			log.Warn("unparseable filing date in file name",
				zap.String("file", name), zap.String("date", m[3]))
			continue
		}

		sf := SourceFile{
			Path:  filepath.Join(bdcDir, name),
			Base:  m[1] + m[2],
			Date:  date,
			IsZip: m[4] == "zip",
		}

		cur, ok := latest[sf.Base]
		if !ok {
			latest[sf.Base] = sf
			order = append(order, sf.Base)
			continue
		}
		// Later filing wins; for the same filing a .zip beats its .csv twin.
		if sf.Date.After(cur.Date) || (sf.Date.Equal(cur.Date) && sf.IsZip && !cur.IsZip) {
			latest[sf.Base] = sf
		}
	}

	if len(latest) == 0 {
		return nil, eris.Errorf("discover: no availability files in %s", bdcDir)
	}

	out := make([]SourceFile, 0, len(latest))
	for _, base := range order {
		sf := latest[base]
		// ZIP archives are validated after extraction.
		if !sf.IsZip {
			if err := validateHeader(sf.Path); err != nil {
				return nil, err
			}
		}
		out = append(out, sf)
	}

	log.Debug("availability files selected", zap.Int("count", len(out)))
	return out, nil
}

// validateHeader rejects an availability CSV whose header is missing
// required columns, before any full parse begins.
func validateHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "discover: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, err := fetcher.ReadCSVHeader(f)
	if err != nil {
		return eris.Wrapf(err, "discover: header of %s", path)
	}
	if !bdc.HasColumns(header) {
		return eris.Errorf("discover: %s is missing required availability columns", path)
	}
	return nil
}

// ResolveCSV returns a readable CSV path for a source file, extracting ZIP
// archives into tempDir as needed.
func ResolveCSV(sf SourceFile, tempDir string) (string, error) {
	if !sf.IsZip {
		return sf.Path, nil
	}

	destDir := filepath.Join(tempDir, strings.TrimSuffix(filepath.Base(sf.Path), ".zip"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "discover: create extract dir")
	}

	paths, err := fetcher.ExtractZIP(sf.Path, destDir)
	if err != nil {
		return "", eris.Wrapf(err, "discover: extract %s", sf.Path)
	}
	for _, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), ".csv") && !strings.HasPrefix(filepath.Base(p), "._") {
			return p, nil
		}
	}
	return "", eris.Errorf("discover: no csv inside %s", sf.Path)
}
