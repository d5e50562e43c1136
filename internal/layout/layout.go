// Package layout holds the validated widget tree. A Model is immutable after
// Load; a configuration change means building a new Model, never mutating one
// mid-render.
package layout

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/ep9io/ax206dash/internal/config"
	"github.com/ep9io/ax206dash/internal/model"
)

// ErrInvalidLayout reports a widget tree that cannot be rendered: unknown
// kinds or fields, geometry outside the canvas, unresolvable assets.
var ErrInvalidLayout = errors.New("invalid layout")

type Kind int

const (
	KindText Kind = iota
	KindGauge
	KindGraph
	KindImage
	KindClock
)

var kinds = map[string]Kind{
	"text":  KindText,
	"gauge": KindGauge,
	"graph": KindGraph,
	"image": KindImage,
	"clock": KindClock,
}

type Resample int

const (
	ResampleNearest Resample = iota
	ResampleBilinear
)

// Widget is one validated dashboard element. Only the attributes relevant to
// its kind are populated.
type Widget struct {
	Kind     Kind
	Rect     image.Rectangle
	Field    model.Field
	Label    string
	Format   string
	Min      float64
	Max      float64
	Color    color.RGBA
	FontSize float64
	Bold     bool
	Pattern  string
	// Bitmap is the image widget's source, pre-decoded and pre-scaled to
	// Rect at load time.
	Bitmap *image.RGBA
}

// Model is the widget tree plus canvas parameters. Widgets paint in slice
// order; later widgets overdraw earlier ones.
type Model struct {
	canvas     image.Rectangle
	background color.RGBA
	widgets    []Widget
}

func (m *Model) Canvas() image.Rectangle { return m.canvas }
func (m *Model) Background() color.RGBA  { return m.background }

// Widgets returns the draw-ordered widget slice. Read-only by convention; the
// slice is shared, not copied, because the model never changes after Load.
func (m *Model) Widgets() []Widget { return m.widgets }

// Load validates the configured widgets against the canvas and the set of
// fields the metrics source can produce. An empty widget list gets the stock
// dashboard layout.
func Load(cfg *config.Config, known []model.Field) (*Model, error) {
	canvas := image.Rect(0, 0, cfg.Canvas.Width, cfg.Canvas.Height)

	bg, err := ParseColor(cfg.Canvas.Background)
	if err != nil {
		return nil, fmt.Errorf("%w: canvas background: %v", ErrInvalidLayout, err)
	}

	raw := cfg.Widgets
	if len(raw) == 0 {
		raw = defaultWidgets(cfg.Canvas.Width, cfg.Canvas.Height)
	}

	fields := make(map[model.Field]bool, len(known))
	for _, f := range known {
		fields[f] = true
	}

	m := &Model{canvas: canvas, background: bg, widgets: make([]Widget, 0, len(raw))}
	for i, wc := range raw {
		w, err := buildWidget(wc, canvas, fields)
		if err != nil {
			return nil, fmt.Errorf("%w: widget %d (%s): %v", ErrInvalidLayout, i, wc.Kind, err)
		}
		m.widgets = append(m.widgets, w)
	}
	return m, nil
}

func buildWidget(wc config.Widget, canvas image.Rectangle, fields map[model.Field]bool) (Widget, error) {
	kind, ok := kinds[strings.ToLower(wc.Kind)]
	if !ok {
		return Widget{}, fmt.Errorf("unknown kind %q", wc.Kind)
	}

	rect := image.Rect(wc.X, wc.Y, wc.X+wc.W, wc.Y+wc.H)
	if rect.Empty() {
		return Widget{}, fmt.Errorf("empty rectangle %dx%d", wc.W, wc.H)
	}
	if !rect.In(canvas) {
		return Widget{}, fmt.Errorf("rectangle %v outside canvas %v", rect, canvas)
	}

	w := Widget{
		Kind:     kind,
		Rect:     rect,
		Field:    model.Field(wc.Field),
		Label:    wc.Label,
		Format:   wc.Format,
		Min:      wc.Min,
		Max:      wc.Max,
		FontSize: wc.FontSize,
		Bold:     wc.Bold,
		Pattern:  wc.Pattern,
	}
	if w.FontSize <= 0 {
		w.FontSize = 14
	}

	w.Color = color.RGBA{R: 0xee, G: 0xee, B: 0xec, A: 0xff}
	if wc.Color != "" {
		c, err := ParseColor(wc.Color)
		if err != nil {
			return Widget{}, err
		}
		w.Color = c
	}

	switch kind {
	case KindText, KindGauge, KindGraph:
		if w.Field == "" {
			return Widget{}, errors.New("missing field binding")
		}
		if !fields[w.Field] {
			return Widget{}, fmt.Errorf("unknown field %q", w.Field)
		}
	case KindClock:
		if w.Pattern == "" {
			w.Pattern = "15:04:05"
		}
	case KindImage:
		bmp, err := loadBitmap(wc.Path, rect, wc.Resample)
		if err != nil {
			return Widget{}, err
		}
		w.Bitmap = bmp
	}

	if kind == KindGauge && w.Min == 0 && w.Max == 0 {
		w.Max = 100
	}
	if kind == KindGauge && w.Min >= w.Max {
		return Widget{}, fmt.Errorf("gauge range [%g,%g] is empty", w.Min, w.Max)
	}

	return w, nil
}

// loadBitmap decodes and pre-scales an image widget's source so render cycles
// only blit.
func loadBitmap(path string, rect image.Rectangle, resample string) (*image.RGBA, error) {
	if path == "" {
		return nil, errors.New("image widget needs a path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	var scaler xdraw.Scaler
	switch strings.ToLower(resample) {
	case "", "nearest":
		scaler = xdraw.NearestNeighbor
	case "bilinear":
		scaler = xdraw.ApproxBiLinear
	default:
		return nil, fmt.Errorf("unknown resample policy %q", resample)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// ParseColor parses a #rrggbb literal.
func ParseColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %v", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
