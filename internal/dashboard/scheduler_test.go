package dashboard

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ep9io/ax206dash/internal/config"
	"github.com/ep9io/ax206dash/internal/layout"
	"github.com/ep9io/ax206dash/internal/model"
	"github.com/ep9io/ax206dash/internal/render"
)

// mockDevice records everything the scheduler does to it. The mutex matters
// only for tests that run the scheduler loop in a goroutine.
type mockDevice struct {
	width, height int

	mu           sync.Mutex
	backlight    int
	backlightErr error
	orientation  int
	full        []image.Image
	regions     []image.Rectangle
	uploadErr   error
	closed      int
}

func newMockDevice() *mockDevice { return &mockDevice{width: 480, height: 320} }

func (d *mockDevice) Size() (int, int) { return d.width, d.height }

func (d *mockDevice) SetBacklight(_ context.Context, level int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backlightErr != nil {
		return d.backlightErr
	}
	d.backlight = level
	return nil
}

func (d *mockDevice) SetOrientation(_ context.Context, turns int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orientation = turns
	return nil
}

func (d *mockDevice) UploadFrame(_ context.Context, img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uploadErr != nil {
		return d.uploadErr
	}
	d.full = append(d.full, img)
	return nil
}

func (d *mockDevice) UploadRegion(_ context.Context, img image.Image, rect image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uploadErr != nil {
		return d.uploadErr
	}
	d.regions = append(d.regions, rect)
	return nil
}

func (d *mockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *mockDevice) setUploadErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploadErr = err
}

func (d *mockDevice) fullCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.full)
}

func (d *mockDevice) regionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.regions)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	cfg := &config.Config{
		Canvas: config.Canvas{Width: 480, Height: 320, Background: "#000000"},
		Widgets: []config.Widget{
			{Kind: "text", X: 4, Y: 2, W: 200, H: 20, Field: "cpu_percent", Label: "CPU ", Color: "#ffffff"},
			{Kind: "graph", X: 240, Y: 30, W: 200, H: 80, Field: "net_rx", Color: "#cc0000"},
		},
	}
	m, err := layout.Load(cfg, model.BaseFields())
	require.NoError(t, err)
	r, err := render.New(m)
	require.NoError(t, err)
	return r
}

func testOptions() SchedulerOptions {
	return SchedulerOptions{
		Tick:           5 * time.Millisecond,
		BackoffInitial: time.Millisecond,
		BackoffMax:     4 * time.Millisecond,
		LogEvery:       10,
		Backlight:      4,
		Orientation:    0,
	}
}

func publishCPU(store *model.Store, percent float64) {
	now := time.Now()
	store.Publish(&model.Snapshot{
		At: now,
		Samples: map[model.Field]model.Sample{
			model.FieldCPUPercent: model.PercentSample(model.FieldCPUPercent, percent, now),
		},
	})
}

func singleDeviceOpener(dev Device) Opener {
	return func(context.Context) (Device, error) { return dev, nil }
}

func TestConnectAppliesDeviceSettings(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	opts := testOptions()
	opts.Backlight = 6
	opts.Orientation = 2
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, opts, testLogger())

	s.connect(context.Background())

	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, 6, dev.backlight)
	assert.Equal(t, 2, dev.orientation)
	assert.Equal(t, 0, s.failures)
}

func TestFirstCycleUploadsFullFrame(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	rend := testRenderer(t)
	s := NewScheduler(singleDeviceOpener(dev), rend, store, testOptions(), testLogger())
	publishCPU(store, 50)

	s.connect(context.Background())
	require.NoError(t, s.cycle(context.Background()))

	require.Len(t, dev.full, 1)
	assert.Empty(t, dev.regions)

	// The uploaded frame is exactly what the renderer produces for the
	// published snapshot (no clock widget, so now does not matter).
	want := rend.Render(store.Load(), time.Now())
	got, ok := dev.full[0].(*render.Frame)
	require.True(t, ok)
	assert.Equal(t, want.Pix, got.Pix)
}

func TestUnchangedFrameSkipsUpload(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 50)

	s.connect(context.Background())
	require.NoError(t, s.cycle(context.Background()))
	require.NoError(t, s.cycle(context.Background()))

	assert.Len(t, dev.full, 1, "identical frames are not re-uploaded")
	assert.Empty(t, dev.regions)
}

func TestChangedFrameUploadsRegion(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 50)

	s.connect(context.Background())
	require.NoError(t, s.cycle(context.Background()))

	publishCPU(store, 99)
	require.NoError(t, s.cycle(context.Background()))

	require.Len(t, dev.regions, 1)
	// Only the text widget repaints, so the dirty rect stays inside it.
	assert.True(t, dev.regions[0].In(image.Rect(4, 2, 204, 22)),
		"dirty rect %v escapes the text widget", dev.regions[0])
}

func TestUploadErrorTriggersRecovery(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 50)

	s.connect(context.Background())
	dev.setUploadErr(errors.New("pipe stalled"))

	err := s.cycle(context.Background())
	require.Error(t, err)
	s.handleUploadError(err)
	assert.Equal(t, StateRecovering, s.State())
}

func TestReconnectStartsWithFullFrame(t *testing.T) {
	first := newMockDevice()
	second := newMockDevice()
	devices := []Device{first, second}
	store := model.NewStore()
	s := NewScheduler(func(context.Context) (Device, error) {
		d := devices[0]
		if len(devices) > 1 {
			devices = devices[1:]
		}
		return d, nil
	}, testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 50)

	s.connect(context.Background())
	require.NoError(t, s.cycle(context.Background()))
	require.Len(t, first.full, 1)

	// Device loss: recover, reconnect, and the new session must get a full
	// frame even though the raster did not change.
	first.setUploadErr(errors.New("device gone"))
	publishCPU(store, 51)
	s.handleUploadError(s.cycle(context.Background()))
	s.closeSession()
	s.state = StateConnecting
	s.connect(context.Background())

	require.NoError(t, s.cycle(context.Background()))
	assert.Len(t, second.full, 1)
	assert.Empty(t, second.regions)
	assert.Equal(t, 1, first.closed)
}

func TestSettingsFailureCountsAsConnectFailure(t *testing.T) {
	dev := newMockDevice()
	dev.backlightErr = errors.New("backlight rejected")
	store := model.NewStore()
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, testOptions(), testLogger())

	ctx := context.Background()
	s.connect(ctx)
	s.connect(ctx)
	s.connect(ctx)

	assert.NotEqual(t, StateActive, s.State())
	assert.Equal(t, 3, s.failures, "a device that rejects its settings is a failed attempt")
	assert.Equal(t, 4*time.Millisecond, s.backoff, "backoff doubles to the cap on this path too")
	assert.Equal(t, 3, dev.closed, "each rejected device is closed")
}

func TestSettingsFailureDoesNotBusyLoop(t *testing.T) {
	dev := newMockDevice()
	dev.backlightErr = errors.New("backlight rejected")
	store := model.NewStore()
	opens := 0
	opener := func(context.Context) (Device, error) {
		opens++
		return dev, nil
	}
	s := NewScheduler(opener, testRenderer(t), store, testOptions(), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after the deadline")
	}

	// With 1ms initial backoff capped at 4ms, 60ms admits on the order of
	// twenty attempts. Thousands would mean the settings-failure path
	// skipped the backoff sleep.
	assert.LessOrEqual(t, opens, 40, "reconnects must pace at the backoff, got %d in 60ms", opens)
	assert.GreaterOrEqual(t, opens, 2)
}

func TestConnectBackoffDoublesAndCaps(t *testing.T) {
	store := model.NewStore()
	opener := func(context.Context) (Device, error) { return nil, errors.New("no such device") }
	s := NewScheduler(opener, testRenderer(t), store, testOptions(), testLogger())

	ctx := context.Background()
	var seen []time.Duration
	for i := 0; i < 5; i++ {
		seen = append(seen, s.backoff)
		s.connect(ctx)
	}

	assert.Equal(t, []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
	}, seen)
	assert.Equal(t, 5, s.failures)
}

func TestConnectSuccessResetsBackoff(t *testing.T) {
	store := model.NewStore()
	fail := true
	dev := newMockDevice()
	s := NewScheduler(func(context.Context) (Device, error) {
		if fail {
			return nil, errors.New("no such device")
		}
		return dev, nil
	}, testRenderer(t), store, testOptions(), testLogger())

	ctx := context.Background()
	s.connect(ctx)
	s.connect(ctx)
	require.Equal(t, 4*time.Millisecond, s.backoff)

	fail = false
	s.connect(ctx)
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, 0, s.failures)
	assert.Equal(t, time.Millisecond, s.backoff)
}

func TestRunUploadsOnTicks(t *testing.T) {
	dev := newMockDevice()
	store := model.NewStore()
	s := NewScheduler(singleDeviceOpener(dev), testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Drive a few visible changes through the store and wait for them to
	// reach the device.
	require.Eventually(t, func() bool { return dev.fullCount() >= 1 }, time.Second, time.Millisecond)
	for pct := 20.0; pct <= 60; pct += 10 {
		publishCPU(store, pct)
		want := dev.regionCount()
		require.Eventually(t, func() bool { return dev.regionCount() > want }, time.Second, time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.Equal(t, 1, dev.fullCount(), "exactly one full upload per session")
	assert.GreaterOrEqual(t, dev.regionCount(), 5)
	assert.Equal(t, 1, dev.closed, "shutdown closes the session")
}

func TestRunOnceWritesDecodablePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	store := model.NewStore()
	opener := func(context.Context) (Device, error) {
		return newFileDevice(path, 480, 320), nil
	}
	s := NewScheduler(opener, testRenderer(t), store, testOptions(), testLogger())
	publishCPU(store, 50)

	require.NoError(t, s.RunOnce(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 480, 320), img.Bounds())
}
