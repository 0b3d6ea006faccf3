package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ShapefileExts are the members of a shapefile bundle go-shp reads or that
// describe it. TIGER/Line zips also carry ISO metadata XML, which is skipped.
var ShapefileExts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// ExtractZIP unpacks zipPath into destDir and returns the written file paths.
// When exts is non-empty only entries with one of those extensions
// (case-insensitive) are written.
func ExtractZIP(zipPath, destDir string, exts ...string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	var written []string
	for _, f := range r.File {
		dest := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(dest, root) {
			return written, eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
		}
		if f.FileInfo().IsDir() || !hasExt(f.Name, exts) {
			continue
		}
		if err := writeEntry(f, dest); err != nil {
			return written, eris.Wrapf(err, "zip: extract %s", f.Name)
		}
		written = append(written, dest)
	}
	return written, nil
}

func hasExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// FindByExt returns the single path in paths with the given extension
// (case-insensitive). Zero or several matches are errors.
func FindByExt(paths []string, ext string) (string, error) {
	var found []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return "", eris.Errorf("zip: no %s file in archive", ext)
	case 1:
		return found[0], nil
	default:
		return "", eris.Errorf("zip: expected exactly 1 %s file, got %d", ext, len(found))
	}
}
