package ax206

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// Session is an open, initialized connection to one AX206 panel. It owns the
// USB handle exclusively; all commands serialize on its mutex so at most one
// transfer sequence is in flight. A session that hits an I/O or protocol
// error is invalid for good and must be replaced by a new Open, not repaired.
type Session struct {
	mu      sync.Mutex
	w       wire
	logger  *slog.Logger
	width   int
	height  int
	invalid bool
}

// Open enumerates USB devices, claims the first match and performs the
// dimensions handshake.
func Open(ctx context.Context, sel Selector, logger *slog.Logger) (*Session, error) {
	w, err := openWire(ctx, sel)
	if err != nil {
		return nil, err
	}
	s, err := newSession(ctx, w, logger)
	if err != nil {
		w.close()
		return nil, err
	}
	logger.Info("ax206 session opened", "selector", sel.String(), "width", s.width, "height", s.height)
	return s, nil
}

func newSession(ctx context.Context, w wire, logger *slog.Logger) (*Session, error) {
	s := &Session{w: w, logger: logger}
	reply := make([]byte, lcdParamsLen)
	if err := s.roundTrip(ctx, getLCDParamsCmd(), nil, reply); err != nil {
		return nil, err
	}
	s.width = int(reply[0]) | int(reply[1])<<8
	s.height = int(reply[2]) | int(reply[3])<<8
	if s.width <= 0 || s.height <= 0 {
		return nil, devErr(KindProtocol, "handshake", fmt.Errorf("device reported %dx%d panel", s.width, s.height))
	}
	return s, nil
}

// Size reports the negotiated panel dimensions.
func (s *Session) Size() (width, height int) {
	return s.width, s.height
}

// SetBacklight sets the panel brightness, 0..MaxBacklight.
func (s *Session) SetBacklight(ctx context.Context, level int) error {
	if level < 0 || level > MaxBacklight {
		return devErr(KindInvalidArgument, "set backlight", fmt.Errorf("level %d outside 0..%d", level, MaxBacklight))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command(ctx, "set backlight", setPropertyCmd(propBrightness, byte(level)), nil)
}

// SetOrientation rotates the panel in quarter turns clockwise, 0..MaxOrientation.
func (s *Session) SetOrientation(ctx context.Context, turns int) error {
	if turns < 0 || turns > MaxOrientation {
		return devErr(KindInvalidArgument, "set orientation", fmt.Errorf("orientation %d outside 0..%d", turns, MaxOrientation))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command(ctx, "set orientation", setPropertyCmd(propOrientation, byte(turns)), nil)
}

// UploadFrame pushes a full frame to the panel. The image is rescaled
// nearest-neighbor when its dimensions differ from the negotiated panel size.
func (s *Session) UploadFrame(ctx context.Context, img image.Image) error {
	return s.UploadRegion(ctx, img, img.Bounds())
}

// UploadRegion pushes one rectangle of the frame. The call is all-or-nothing
// for the caller: on any transfer failure the session is invalidated and the
// panel keeps showing its previous content.
func (s *Session) UploadRegion(ctx context.Context, img image.Image, rect image.Rectangle) error {
	fitted, scaled := fitToPanel(img, s.width, s.height)
	if scaled {
		// The region was computed against the frame's coordinates; after a
		// rescale only a full update is coherent.
		rect = fitted.Bounds()
	}
	rect = rect.Intersect(fitted.Bounds())
	if rect.Empty() {
		return devErr(KindInvalidArgument, "upload", fmt.Errorf("empty update region"))
	}

	payload := encodeRGB565(fitted, rect)
	cmd := blitCmd(rect.Min.X, rect.Min.Y, rect.Max.X-1, rect.Max.Y-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command(ctx, "upload", cmd, payload)
}

// Close releases the USB interface. Idempotent and safe after errors.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.close()
	s.w = nil
	s.invalid = true
	return err
}

// command runs one CBW / data / CSW exchange with outbound data. Callers hold mu.
func (s *Session) command(ctx context.Context, op string, cmd, data []byte) error {
	if s.invalid || s.w == nil {
		return devErr(KindSessionInvalid, op, nil)
	}
	if err := s.exchange(ctx, cmd, data, nil); err != nil {
		s.invalid = true
		s.logger.Debug("ax206 session invalidated", "op", op, "error", err)
		return err
	}
	return nil
}

// roundTrip runs one exchange that reads a reply. Used only during the
// handshake, before the session is shared.
func (s *Session) roundTrip(ctx context.Context, cmd, data, reply []byte) error {
	if err := s.exchange(ctx, cmd, data, reply); err != nil {
		s.invalid = true
		return err
	}
	return nil
}

func (s *Session) exchange(ctx context.Context, cmd, dataOut, dataIn []byte) error {
	dataLen := uint32(len(dataOut))
	dirIn := dataIn != nil
	if dirIn {
		dataLen = uint32(len(dataIn))
	}
	if err := s.w.write(ctx, wrapCBW(cmd, dataLen, dirIn)); err != nil {
		return err
	}
	if dirIn {
		if err := s.w.read(ctx, dataIn); err != nil {
			return err
		}
	} else {
		for off := 0; off < len(dataOut); off += maxChunk {
			end := off + maxChunk
			if end > len(dataOut) {
				end = len(dataOut)
			}
			if err := s.w.write(ctx, dataOut[off:end]); err != nil {
				return err
			}
		}
	}
	return s.readCSW(ctx)
}

func (s *Session) readCSW(ctx context.Context) error {
	csw := make([]byte, cswLen)
	if err := s.w.read(ctx, csw); err != nil {
		return err
	}
	if [4]byte(csw[0:4]) != cswSignature {
		return devErr(KindProtocol, "status", fmt.Errorf("bad CSW signature % x", csw[0:4]))
	}
	if csw[12] != 0x00 {
		return devErr(KindProtocol, "status", fmt.Errorf("command failed with status %#02x", csw[12]))
	}
	return nil
}
