package plotting

import (
	"fmt"
	"image"
	"image/color/palette"
	imagedraw "image/draw"
	"image/gif"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
)

const (
	defaultWidth  = 25 * vg.Centimeter
	defaultHeight = 16 * vg.Centimeter
	defaultDPI    = 96
	defaultDelay  = 100
)

// Renderer writes plots as PNG images and animated GIFs.
type Renderer struct {
	width  vg.Length
	height vg.Length
	dpi    int
	delay  int
	logger *slog.Logger
}

// NewRenderer creates a renderer. Zero sizes fall back to 25x16 cm at 96 dpi
// with one second per animation frame.
func NewRenderer(cfg config.PlotsConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		width:  vg.Length(cfg.Width) * vg.Centimeter,
		height: vg.Length(cfg.Height) * vg.Centimeter,
		dpi:    cfg.DPI,
		delay:  cfg.FrameDelay,
		logger: logger,
	}
	if r.width <= 0 {
		r.width = defaultWidth
	}
	if r.height <= 0 {
		r.height = defaultHeight
	}
	if r.dpi <= 0 {
		r.dpi = defaultDPI
	}
	if r.delay <= 0 {
		r.delay = defaultDelay
	}
	return r
}

func (r *Renderer) canvas(p *plot.Plot) *vgimg.Canvas {
	c := vgimg.NewWith(vgimg.UseWH(r.width, r.height), vgimg.UseDPI(r.dpi))
	p.Draw(draw.New(c))
	return c
}

// SavePNG renders p to path.
func (r *Renderer) SavePNG(p *plot.Plot, path string) error {
	c := vgimg.PngCanvas{Canvas: r.canvas(p)}
	err := writeFile(path, func(f *os.File) error {
		_, err := c.WriteTo(f)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	r.logger.Info("Plot saved", slog.String("path", path))
	return nil
}

// SaveGIF renders every frame and writes them as one looping animation.
func (r *Renderer) SaveGIF(frames []*plot.Plot, path string) error {
	if len(frames) == 0 {
		return ErrNoData
	}
	anim := &gif.GIF{}
	for _, p := range frames {
		img := r.canvas(p).Image()
		bounds := img.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		imagedraw.FloydSteinberg.Draw(paletted, bounds, img, bounds.Min)
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, r.delay)
	}

	err := writeFile(path, func(f *os.File) error { return gif.EncodeAll(f, anim) })
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	r.logger.Info("Animation saved", slog.String("path", path), slog.Int("frames", len(frames)))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
