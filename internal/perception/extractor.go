package perception

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // screencap output
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// Extractor builds immutable Scene snapshots from the ScreenPort. It holds
// no per-scene state; one extractor serves a whole session.
type Extractor struct {
	port   schemas.ScreenPort
	cfg    config.PerceptionConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExtractor creates an Extractor over the given perception capability.
func NewExtractor(port schemas.ScreenPort, cfg config.PerceptionConfig, logger *zap.Logger) *Extractor {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 70
	}
	return &Extractor{
		port:   port,
		cfg:    cfg,
		logger: logger.Named("perception"),
		now:    time.Now,
	}
}

// Capture takes one snapshot of the target UI: the filtered element tree
// plus a compressed screenshot. The returned Scene is never mutated after
// this call returns.
func (e *Extractor) Capture(ctx context.Context) (*schemas.Scene, error) {
	layout, err := e.port.CaptureLayout(ctx)
	if err != nil {
		return nil, fmt.Errorf("layout capture failed: %w", err)
	}

	pkg, elements, err := ParseHierarchy(layout)
	if err != nil {
		return nil, fmt.Errorf("layout parse failed: %w", err)
	}

	raw, err := e.port.CaptureScreenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	shot, err := e.compressScreenshot(raw)
	if err != nil {
		return nil, fmt.Errorf("screenshot encode failed: %w", err)
	}

	scene := &schemas.Scene{
		Package:    pkg,
		Elements:   elements,
		Screenshot: shot,
		CapturedAt: e.now(),
	}

	// Activity is best-effort; a scene without it is still usable.
	if focus, err := e.port.Foreground(ctx); err == nil {
		scene.Activity = focus.Activity
		if scene.Package == "" {
			scene.Package = focus.Package
		}
	}

	e.logger.Debug("scene captured",
		zap.String("package", scene.Package),
		zap.Int("elements", len(scene.Elements)),
		zap.Int("screenshot_bytes", len(scene.Screenshot)))
	return scene, nil
}

// compressScreenshot re-encodes the raw capture as JPEG, downscaling to the
// configured maximum width first. Decision-service token cost scales with
// image size, so captures are shrunk aggressively.
func (e *Extractor) compressScreenshot(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	if max := e.cfg.MaxScreenshotWidth; max > 0 && bounds.Dx() > max {
		scale := float64(max) / float64(bounds.Dx())
		dst := image.NewRGBA(image.Rect(0, 0, max, int(float64(bounds.Dy())*scale)))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.cfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
