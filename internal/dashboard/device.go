package dashboard

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
)

// Device is the scheduler's view of the panel transport. ax206.Session
// satisfies it; tests and simulate mode substitute their own.
type Device interface {
	Size() (width, height int)
	SetBacklight(ctx context.Context, level int) error
	SetOrientation(ctx context.Context, turns int) error
	UploadFrame(ctx context.Context, img image.Image) error
	UploadRegion(ctx context.Context, img image.Image, rect image.Rectangle) error
	Close() error
}

// Opener produces a fresh device session. The scheduler calls it on every
// (re)connect; sessions are replaced, never repaired.
type Opener func(ctx context.Context) (Device, error)

// fileDevice renders to a PNG file instead of hardware (simulate mode).
type fileDevice struct {
	path   string
	width  int
	height int
}

func newFileDevice(path string, width, height int) *fileDevice {
	return &fileDevice{path: path, width: width, height: height}
}

func (d *fileDevice) Size() (int, int) { return d.width, d.height }

func (d *fileDevice) SetBacklight(context.Context, int) error   { return nil }
func (d *fileDevice) SetOrientation(context.Context, int) error { return nil }
func (d *fileDevice) Close() error                              { return nil }

func (d *fileDevice) UploadFrame(ctx context.Context, img image.Image) error {
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", d.path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}
	return nil
}

func (d *fileDevice) UploadRegion(ctx context.Context, img image.Image, _ image.Rectangle) error {
	// Partial updates are meaningless for a file; write the whole frame.
	return d.UploadFrame(ctx, img)
}
