package ax206

// AX206 wire protocol. The controller is a mass-storage-class device driven
// through vendor SCSI commands wrapped in bulk-only-transport CBW/CSW frames.
// Every literal below is part of the published protocol; keep them here and
// nowhere else.

const (
	// DefaultVendorID and DefaultProductID identify AX206 picture frames in
	// firmware mode.
	DefaultVendorID  = 0x1908
	DefaultProductID = 0x0102

	// Bulk endpoint addresses (endpoint number 1, out and in).
	epOutAddr = 0x01
	epInAddr  = 0x81
	epNum     = 1

	// Vendor SCSI opcode carried in byte 0 of every command block.
	opVendor = 0xcd

	// Byte 5 selects the vendor sub-command.
	subGetLCDParams = 0x02 // reply: width u16le, height u16le, version byte
	subUSBD         = 0x06 // byte 6 selects the USBD operation

	// USBD operations (command byte 6 when byte 5 is subUSBD).
	usbdSetProperty = 0x01 // byte 7 property id, byte 9 value
	usbdBlit        = 0x12 // bytes 7..14 inclusive rect, payload RGB565

	// Property ids for usbdSetProperty.
	propBrightness  = 0x01 // value 0..7
	propOrientation = 0x02 // value 0..3, quarter turns clockwise

	// Backlight and orientation ranges enforced before any transfer.
	MaxBacklight   = 7
	MaxOrientation = 3

	cmdLen = 16

	// Bulk-only-transport framing.
	cbwLen       = 31
	cswLen       = 13
	cbwFlagIn    = 0x80
	cbwFlagOut   = 0x00
	lcdParamsLen = 5

	// Frame payloads are streamed to the bulk pipe in bounded chunks so a
	// stalled device fails within one chunk timeout, not one frame timeout.
	maxChunk = 16 * 1024
)

var (
	cbwSignature = [4]byte{'U', 'S', 'B', 'C'}
	cswSignature = [4]byte{'U', 'S', 'B', 'S'}
	cbwTag       = [4]byte{0xde, 0xad, 0xbe, 0xef}
)

// newCommand returns a zeroed vendor command block.
func newCommand() []byte {
	cmd := make([]byte, cmdLen)
	cmd[0] = opVendor
	return cmd
}

// getLCDParamsCmd queries the panel dimensions.
func getLCDParamsCmd() []byte {
	cmd := newCommand()
	cmd[5] = subGetLCDParams
	return cmd
}

// setPropertyCmd builds a single set-property command.
func setPropertyCmd(prop, value byte) []byte {
	cmd := newCommand()
	cmd[5] = subUSBD
	cmd[6] = usbdSetProperty
	cmd[7] = prop
	cmd[9] = value
	return cmd
}

// blitCmd addresses an update rectangle. Coordinates are inclusive on the
// wire: x1/y1 are the last column/row written.
func blitCmd(x0, y0, x1, y1 int) []byte {
	cmd := newCommand()
	cmd[5] = subUSBD
	cmd[6] = usbdBlit
	cmd[7] = byte(x0)
	cmd[8] = byte(x0 >> 8)
	cmd[9] = byte(y0)
	cmd[10] = byte(y0 >> 8)
	cmd[11] = byte(x1)
	cmd[12] = byte(x1 >> 8)
	cmd[13] = byte(y1)
	cmd[14] = byte(y1 >> 8)
	return cmd
}

// wrapCBW frames a command block for the bulk-out pipe: 15 header bytes
// followed by the 16-byte command.
func wrapCBW(cmd []byte, dataLen uint32, dirIn bool) []byte {
	out := make([]byte, cbwLen)
	copy(out[0:4], cbwSignature[:])
	copy(out[4:8], cbwTag[:])
	out[8] = byte(dataLen)
	out[9] = byte(dataLen >> 8)
	out[10] = byte(dataLen >> 16)
	out[11] = byte(dataLen >> 24)
	if dirIn {
		out[12] = cbwFlagIn
	} else {
		out[12] = cbwFlagOut
	}
	out[13] = 0x00 // LUN
	out[14] = byte(len(cmd))
	copy(out[15:], cmd)
	return out
}
