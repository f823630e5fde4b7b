// Package reference builds the run's immutable lookup tables from FCC
// reference files (technology codes and the national provider list).
package reference

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/bdc"
	"github.com/sells-group/bdc-cli/internal/fetcher"
)

// LoadTechTable reads the technology-code reference file (.csv, zipped
// .csv, or .xlsx) and returns the table for codes it lists. Abbreviations
// and classification flags come from the built-in mapping; listed codes
// without a built-in abbreviation are warn-logged and left to resolve as
// Unknown. With an empty path the built-in table is returned unchanged.
func LoadTechTable(ctx context.Context, path, tempDir string) (*bdc.TechTable, error) {
	if path == "" {
		return bdc.NewTechTable(bdc.DefaultTechnologies()), nil
	}

	rows, err := readTable(ctx, path, tempDir)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("reference: technology file %s is empty", path)
	}

	codeIdx, _ := columnIndex(rows[0], "code")
	if codeIdx < 0 {
		return nil, eris.Errorf("reference: technology file %s has no Code column", path)
	}

	known := make(map[int]bdc.Technology)
	for _, t := range bdc.DefaultTechnologies() {
		known[t.Code] = t
	}

	var techs []bdc.Technology
	for _, row := range rows[1:] {
		if codeIdx >= len(row) || strings.TrimSpace(row[codeIdx]) == "" {
			continue
		}
		code, err := bdc.CanonicalTechCode(row[codeIdx])
		if err != nil {
			zap.L().Warn("reference: unparseable technology code", zap.String("value", row[codeIdx]))
			continue
		}
		tech, ok := known[code]
		if !ok {
			zap.L().Warn("reference: technology code without abbreviation", zap.Int("code", code))
			continue
		}
		techs = append(techs, tech)
	}

	if len(techs) == 0 {
		return nil, eris.Errorf("reference: technology file %s yielded no known codes", path)
	}
	return bdc.NewTechTable(techs), nil
}

// LoadProviderTable reads the provider list (.csv or zipped .csv) and
// returns the provider_id to holding_company table.
func LoadProviderTable(ctx context.Context, path, tempDir string) (*bdc.ProviderTable, error) {
	rows, err := readTable(ctx, path, tempDir)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("reference: provider list %s is empty", path)
	}

	idIdx, _ := columnIndex(rows[0], "provider_id")
	holderIdx, _ := columnIndex(rows[0], "holding_company")
	if idIdx < 0 || holderIdx < 0 {
		return nil, eris.Errorf("reference: provider list %s missing provider_id/holding_company columns", path)
	}

	m := make(map[string]string)
	for _, row := range rows[1:] {
		if idIdx >= len(row) || holderIdx >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idIdx])
		if id == "" {
			continue
		}
		m[id] = strings.TrimSpace(row[holderIdx])
	}

	zap.L().Debug("reference: provider list loaded", zap.Int("providers", len(m)))
	return bdc.NewProviderTable(m), nil
}

// readTable reads a reference file into rows, extracting ZIP archives and
// accepting XLSX workbooks.
func readTable(ctx context.Context, path, tempDir string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		destDir := filepath.Join(tempDir, strings.TrimSuffix(filepath.Base(path), ".zip"))
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "reference: create extract dir")
		}
		csvPath, err := fetcher.ExtractZIPSingle(path, destDir)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: extract %s", path)
		}
		return readCSVRows(ctx, csvPath)
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	default:
		return readCSVRows(ctx, path)
	}
}

func readCSVRows(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// columnIndex finds a column by case-insensitive name. Returns -1 when
// absent.
func columnIndex(header []string, name string) (int, bool) {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i, true
		}
	}
	return -1, false
}
