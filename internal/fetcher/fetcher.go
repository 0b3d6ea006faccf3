// Package fetcher reads tabular source files (CSV, XLSX), unpacks ZIP
// archives and downloads remote inputs into a local cache.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// TableOptions configures ReadTable.
type TableOptions struct {
	SkipRows  int    // leading rows to drop before the header
	SheetName string // XLSX only; default is the first sheet
}

// ReadTable reads a .csv or .xlsx file fully into memory and returns its rows
// after dropping opts.SkipRows leading rows. The file is closed before return.
func ReadTable(path string, opts TableOptions) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f, CSVOptions{SkipRows: opts.SkipRows, LazyQuotes: true})
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{SheetName: opts.SheetName, SkipRows: opts.SkipRows})
	default:
		return nil, eris.Errorf("fetcher: unsupported table format %q", filepath.Ext(path))
	}
}
