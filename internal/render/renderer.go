// Package render turns a widget tree plus a metrics snapshot into a frame
// the AX206 transport can upload. Rendering is deterministic: the wall clock
// enters only through the now parameter.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/ep9io/ax206dash/internal/layout"
	"github.com/ep9io/ax206dash/internal/model"
)

// placeholder is what a widget shows when its bound field has no sample yet.
const placeholder = "--"

type Renderer struct {
	model *layout.Model
	faces *faceCache
}

func New(m *layout.Model) (*Renderer, error) {
	faces, err := newFaceCache()
	if err != nil {
		return nil, err
	}
	return &Renderer{model: m, faces: faces}, nil
}

// Render paints one frame. A missing or partial snapshot degrades individual
// widgets to their placeholders; it never fails the frame.
func (r *Renderer) Render(snap *model.Snapshot, now time.Time) *Frame {
	canvas := r.model.Canvas()
	f := NewFrame(canvas.Dx(), canvas.Dy(), r.model.Background())

	for _, w := range r.model.Widgets() {
		switch w.Kind {
		case layout.KindText:
			r.paintText(f, w, snap)
		case layout.KindGauge:
			r.paintGauge(f, w, snap)
		case layout.KindGraph:
			r.paintGraph(f, w, snap)
		case layout.KindImage:
			r.paintImage(f, w)
		case layout.KindClock:
			r.paintClock(f, w, now)
		}
	}
	return f
}

func (r *Renderer) paintText(f *Frame, w layout.Widget, snap *model.Snapshot) {
	value := placeholder
	if s, ok := snap.Sample(w.Field); ok {
		value = formatSample(s, w.Format)
	}
	r.text(f, w, w.Label+value)
}

func (r *Renderer) paintClock(f *Frame, w layout.Widget, now time.Time) {
	r.text(f, w, w.Label+now.Format(w.Pattern))
}

func (r *Renderer) paintGauge(f *Frame, w layout.Widget, snap *model.Snapshot) {
	frac := 0.0
	if s, ok := snap.Sample(w.Field); ok {
		frac = (clamp(s.Num, w.Min, w.Max) - w.Min) / (w.Max - w.Min)
	}
	progressBar(f.RGBA, w.Rect, frac, w.Color)
}

func (r *Renderer) paintGraph(f *Frame, w layout.Widget, snap *model.Snapshot) {
	frame := color.RGBA{R: 0x3c, G: 0x3c, B: 0x3c, A: 0xff}
	strokeRect(f.RGBA, w.Rect, frame)

	hist, ok := snap.History(w.Field)
	if !ok || hist.Len() == 0 {
		return
	}
	pts := hist.Values()

	lo, hi := w.Min, w.Max
	if hi <= lo {
		// Autoscale to the window.
		lo, hi = pts[0].Value, pts[0].Value
		for _, p := range pts[1:] {
			if p.Value < lo {
				lo = p.Value
			}
			if p.Value > hi {
				hi = p.Value
			}
		}
		if hi == lo {
			hi = lo + 1
		}
	}

	inner := w.Rect.Inset(1)
	if inner.Empty() {
		return
	}

	line := make([]image.Point, 0, len(pts))
	for i, p := range pts {
		x := inner.Min.X
		if len(pts) > 1 {
			x += i * (inner.Dx() - 1) / (len(pts) - 1)
		}
		frac := (clamp(p.Value, lo, hi) - lo) / (hi - lo)
		y := inner.Max.Y - 1 - int(frac*float64(inner.Dy()-1)+0.5)
		line = append(line, image.Point{X: x, Y: y})
	}
	if len(line) == 1 {
		setPixel(f.RGBA, line[0].X, line[0].Y, w.Color)
		return
	}
	polyline(f.RGBA, line, w.Color)
}

func (r *Renderer) paintImage(f *Frame, w layout.Widget) {
	if w.Bitmap == nil {
		return
	}
	draw.Draw(f.RGBA, w.Rect, w.Bitmap, w.Bitmap.Bounds().Min, draw.Over)
}

func (r *Renderer) text(f *Frame, w layout.Widget, s string) {
	face, err := r.faces.face(w.FontSize, w.Bold)
	if err != nil {
		// Face construction failed for this size; skip the widget rather
		// than the frame.
		return
	}
	drawText(f.RGBA, w.Rect, face, w.Color, s)
}

func formatSample(s model.Sample, format string) string {
	if format == "" {
		return s.Display()
	}
	if s.Kind == model.KindText {
		return fmt.Sprintf(format, s.Text)
	}
	return fmt.Sprintf(format, s.Num)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
