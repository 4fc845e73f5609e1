package viewer

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sudorandom/energy-map/pkg/mapdraw"
)

// captureFrame writes the settled map for the current year to FrameCaptureDir as a PNG.
// Encoding happens off the update goroutine; the raster is never mutated after it is built,
// and the fills are copied.
func (e *Engine) captureFrame() {
	if e.FrameCaptureDir == "" {
		return
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(e.FrameCaptureDir, 0o755); err != nil {
		e.log.Error("error creating capture directory", zap.Error(err))
		return
	}

	filename := fmt.Sprintf("energy-%d-%s.png", e.year, e.now().Format("20060102-150405.000"))
	path := filepath.Join(e.FrameCaptureDir, filename)

	raster, year, style, legend := e.raster, e.year, e.Style, e.legend
	fills := make([]color.RGBA, len(e.current))
	copy(fills, e.current)

	go func() {
		img, err := mapdraw.RenderSnapshot(raster, fills, year, legend, style)
		if err != nil {
			e.log.Error("error rendering capture", zap.Error(err))
			return
		}
		f, err := os.Create(path)
		if err != nil {
			e.log.Error("error creating capture file", zap.Error(err))
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				e.log.Error("error closing capture file", zap.Error(err))
			}
		}()

		if err := mapdraw.WritePNG(f, img); err != nil {
			e.log.Error("error encoding capture", zap.Error(err))
			return
		}
		e.log.Info("captured frame", zap.String("path", path), zap.Int("year", year))
	}()
}
