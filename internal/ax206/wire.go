package ax206

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// Selector narrows device matching. Zero VID/PID fall back to the AX206
// defaults; Serial, when set, must match the device's serial string exactly.
type Selector struct {
	VID    uint16
	PID    uint16
	Serial string
}

func (s Selector) vid() gousb.ID {
	if s.VID == 0 {
		return DefaultVendorID
	}
	return gousb.ID(s.VID)
}

func (s Selector) pid() gousb.ID {
	if s.PID == 0 {
		return DefaultProductID
	}
	return gousb.ID(s.PID)
}

func (s Selector) String() string {
	out := fmt.Sprintf("%04x:%04x", uint16(s.vid()), uint16(s.pid()))
	if s.Serial != "" {
		out += "/" + s.Serial
	}
	return out
}

// ParseSelector accepts "vid:pid", "vid:pid/serial", or a bare serial.
func ParseSelector(raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, nil
	}
	var sel Selector
	ids := raw
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		ids, sel.Serial = raw[:i], raw[i+1:]
	}
	if !strings.Contains(ids, ":") {
		if sel.Serial != "" {
			return Selector{}, fmt.Errorf("device selector %q: expected vid:pid before /serial", raw)
		}
		sel.Serial = ids
		return sel, nil
	}
	parts := strings.SplitN(ids, ":", 2)
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return Selector{}, fmt.Errorf("device selector %q: bad vendor id: %w", raw, err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Selector{}, fmt.Errorf("device selector %q: bad product id: %w", raw, err)
	}
	sel.VID, sel.PID = uint16(vid), uint16(pid)
	return sel, nil
}

// wire is the bulk pipe the protocol runs over. The real implementation sits
// on gousb endpoints; tests substitute an in-memory device.
type wire interface {
	write(ctx context.Context, p []byte) error
	read(ctx context.Context, p []byte) error
	close() error
}

type usbWire struct {
	usbCtx *gousb.Context
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()
	out    *gousb.OutEndpoint
	in     *gousb.InEndpoint
}

// openWire claims the first device matching the selector and resolves the
// bulk endpoint pair.
func openWire(ctx context.Context, sel Selector) (*usbWire, error) {
	usbCtx := gousb.NewContext()
	w, err := openWireWith(ctx, usbCtx, sel)
	if err != nil {
		usbCtx.Close()
		return nil, err
	}
	w.usbCtx = usbCtx
	return w, nil
}

func openWireWith(ctx context.Context, usbCtx *gousb.Context, sel Selector) (*usbWire, error) {
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == sel.vid() && desc.Product == sel.pid()
	})
	if err != nil {
		// OpenDevices returns the devices it did open alongside the error.
		for _, d := range devs {
			d.Close()
		}
		return nil, mapUSBErr("enumerate", err)
	}
	if len(devs) == 0 {
		return nil, devErr(KindNotFound, "open", fmt.Errorf("no device matches %s", sel))
	}

	dev, rest, err := pickDevice(devs, sel.Serial)
	for _, d := range rest {
		d.Close()
	}
	if err != nil {
		return nil, err
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return nil, mapUSBErr("detach kernel driver", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, mapUSBErr("claim interface", err)
	}

	out, err := intf.OutEndpoint(epNum)
	if err != nil {
		done()
		dev.Close()
		return nil, mapUSBErr("out endpoint", err)
	}
	in, err := intf.InEndpoint(epNum)
	if err != nil {
		done()
		dev.Close()
		return nil, mapUSBErr("in endpoint", err)
	}

	return &usbWire{dev: dev, intf: intf, done: done, out: out, in: in}, nil
}

// pickDevice selects by serial when one is requested and returns the rest for
// closing.
func pickDevice(devs []*gousb.Device, serial string) (*gousb.Device, []*gousb.Device, error) {
	if serial == "" {
		return devs[0], devs[1:], nil
	}
	for i, d := range devs {
		got, err := d.SerialNumber()
		if err != nil {
			continue
		}
		if got == serial {
			rest := make([]*gousb.Device, 0, len(devs)-1)
			rest = append(rest, devs[:i]...)
			rest = append(rest, devs[i+1:]...)
			return d, rest, nil
		}
	}
	return nil, devs, devErr(KindNotFound, "open", fmt.Errorf("no device with serial %q", serial))
}

func (w *usbWire) write(ctx context.Context, p []byte) error {
	n, err := w.out.WriteContext(ctx, p)
	if err != nil {
		return mapUSBErr("bulk write", err)
	}
	if n != len(p) {
		return devErr(KindIO, "bulk write", fmt.Errorf("short write: %d of %d bytes", n, len(p)))
	}
	return nil
}

func (w *usbWire) read(ctx context.Context, p []byte) error {
	n, err := w.in.ReadContext(ctx, p)
	if err != nil {
		return mapUSBErr("bulk read", err)
	}
	if n != len(p) {
		return devErr(KindIO, "bulk read", fmt.Errorf("short read: %d of %d bytes", n, len(p)))
	}
	return nil
}

func (w *usbWire) close() error {
	if w.done != nil {
		w.done()
		w.done = nil
	}
	var err error
	if w.dev != nil {
		err = w.dev.Close()
		w.dev = nil
	}
	if w.usbCtx != nil {
		if cerr := w.usbCtx.Close(); err == nil {
			err = cerr
		}
		w.usbCtx = nil
	}
	return err
}

// mapUSBErr folds libusb errors into the DeviceError taxonomy.
func mapUSBErr(op string, err error) *DeviceError {
	var usbErr gousb.Error
	if errors.As(err, &usbErr) {
		switch usbErr {
		case gousb.ErrorAccess:
			return devErr(KindPermissionDenied, op, err)
		case gousb.ErrorNotFound:
			return devErr(KindNotFound, op, err)
		case gousb.ErrorNoDevice:
			// Unplugged under us.
			return devErr(KindIO, op, err)
		}
	}
	return devErr(KindIO, op, err)
}
