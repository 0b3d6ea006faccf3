package choropleth

import (
	"bufio"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WritePNG encodes img to path, creating parent directories as needed.
func WritePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "choropleth: create output dir %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "choropleth: create %s", path)
	}

	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "choropleth: encode %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "choropleth: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "choropleth: close %s", path)
}
