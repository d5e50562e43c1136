package ax206

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLCDParamsCmd(t *testing.T) {
	want := []byte{0xcd, 0, 0, 0, 0, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, want, getLCDParamsCmd())
}

func TestSetPropertyCmdBrightness(t *testing.T) {
	// Byte layout published for the AX206 set-property command.
	want := []byte{0xcd, 0, 0, 0, 0, 0x06, 0x01, 0x01, 0x00, 0x05, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, want, setPropertyCmd(propBrightness, 5))
}

func TestBlitCmdInclusiveRect(t *testing.T) {
	cmd := blitCmd(0, 0, 479, 319)
	assert.Equal(t, byte(0xcd), cmd[0])
	assert.Equal(t, byte(0x06), cmd[5])
	assert.Equal(t, byte(0x12), cmd[6])
	// x0=0 y0=0 little endian.
	assert.Equal(t, []byte{0, 0, 0, 0}, cmd[7:11])
	// x1=479=0x01df, y1=319=0x013f little endian.
	assert.Equal(t, []byte{0xdf, 0x01, 0x3f, 0x01}, cmd[11:15])
}

func TestWrapCBW(t *testing.T) {
	cmd := getLCDParamsCmd()
	out := wrapCBW(cmd, 5, true)

	require.Len(t, out, 31)
	assert.Equal(t, []byte("USBC"), out[0:4])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out[4:8])
	assert.Equal(t, []byte{5, 0, 0, 0}, out[8:12], "transfer length little endian")
	assert.Equal(t, byte(0x80), out[12], "direction in")
	assert.Equal(t, byte(0x00), out[13], "lun")
	assert.Equal(t, byte(16), out[14], "command length")
	assert.Equal(t, cmd, out[15:31])
}

func TestWrapCBWOut(t *testing.T) {
	out := wrapCBW(blitCmd(0, 0, 1, 1), 8, false)
	assert.Equal(t, byte(0x00), out[12])
	assert.Equal(t, []byte{8, 0, 0, 0}, out[8:12])
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		raw     string
		want    Selector
		wantErr bool
	}{
		{"", Selector{}, false},
		{"1908:0102", Selector{VID: 0x1908, PID: 0x0102}, false},
		{"1908:0102/AB1234", Selector{VID: 0x1908, PID: 0x0102, Serial: "AB1234"}, false},
		{"AB1234", Selector{Serial: "AB1234"}, false},
		{"xyzz:0102", Selector{}, true},
		{"1908:zzzz", Selector{}, true},
		{"AB1234/extra", Selector{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSelector(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectorDefaults(t *testing.T) {
	s := Selector{}
	assert.Equal(t, "1908:0102", s.String())
	s = Selector{VID: 0x1234, PID: 0x5678, Serial: "X"}
	assert.Equal(t, "1234:5678/X", s.String())
}
