package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// providerListPattern matches the national provider list,
// e.g. bdc_us_provider_list_J24_15dec2024.csv.
var providerListPattern = regexp.MustCompile(`bdc_us_provider_list_[A-Z]\d{2}_(.*)\.(zip|csv|xlsx)`)

// techCodesBase is the FCC technology-code reference file name, published
// as CSV or a zipped CSV.
const techCodesBase = "bdc-Fixed-and-Mobile-Technology-Codes"

// ProviderList returns the most recent provider list file in resourcesDir,
// choosing by the filing date embedded in the name.
func ProviderList(resourcesDir string) (string, error) {
	entries, err := os.ReadDir(resourcesDir)
	if err != nil {
		return "", eris.Wrapf(err, "discover: read resources dir %s", resourcesDir)
	}

	var bestPath string
	var bestDate time.Time
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "._") {
			continue
		}
		m := providerListPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		date, err := parseFilingDate(m[1])
		if err != nil {
			continue
		}
		if bestPath == "" || date.After(bestDate) {
			bestPath = filepath.Join(resourcesDir, e.Name())
			bestDate = date
		}
	}

	if bestPath == "" {
		return "", eris.Errorf("discover: no provider list in %s", resourcesDir)
	}
	return bestPath, nil
}

// TechCodes returns the technology-code reference file in resourcesDir.
// A plain CSV is preferred; a .zip or .xlsx fallback is accepted.
func TechCodes(resourcesDir string) (string, error) {
	for _, ext := range []string{".csv", ".zip", ".xlsx"} {
		path := filepath.Join(resourcesDir, techCodesBase+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", eris.Errorf("discover: no technology code file in %s", resourcesDir)
}
