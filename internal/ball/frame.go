package ball

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Frame layout. These values are the compatibility contract with ball
// firmware and must not change.
const (
	// FrameSize is the length of every command frame in bytes.
	FrameSize = 12

	// FrameTag marks a datagram as a ball command.
	FrameTag byte = 0x42

	OffsetTag           = 0
	OffsetReservedStart = 1
	OffsetReservedEnd   = 7 // inclusive
	OffsetOpcode        = 8
	OffsetRed           = 9
	OffsetGreen         = 10
	OffsetBlue          = 11

	// OpColorChange sets the ball colour to the RGB triple in bytes 9..11.
	OpColorChange byte = 0x0A

	// DefaultPort is the UDP port balls listen on.
	DefaultPort = 41412
)

// Color is an RGB triple. Valid channels are 0..255.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// White is the colour a ball is assumed to show before any command.
var White = Color{R: 255, G: 255, B: 255}

// Valid reports whether every channel is within 0..255.
func (c Color) Valid() bool {
	return validChannel(c.R) && validChannel(c.G) && validChannel(c.B)
}

// Hex returns the colour as #rrggbb. Channels are clamped for display only.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

func validChannel(v int) bool {
	return v >= 0 && v <= 255
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

// Frame is an encoded colour command.
type Frame [FrameSize]byte

// Bytes returns the frame as a slice suitable for a socket write.
func (f Frame) Bytes() []byte {
	return f[:]
}

// String renders the frame as space-separated upper-case hex bytes,
// e.g. "42 00 00 00 00 00 00 00 0A FF 00 00".
func (f Frame) String() string {
	var b strings.Builder
	for i, v := range f {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// EncodeColorCommand builds the colour-change frame for c.
//
// It returns ErrInvalidColor when any channel is outside 0..255.
func EncodeColorCommand(c Color) (Frame, error) {
	var f Frame
	if !c.Valid() {
		return f, fmt.Errorf("%w: %s", ErrInvalidColor, c)
	}
	f[OffsetTag] = FrameTag
	f[OffsetOpcode] = OpColorChange
	f[OffsetRed] = byte(c.R)
	f[OffsetGreen] = byte(c.G)
	f[OffsetBlue] = byte(c.B)
	return f, nil
}

// DecodeColorCommand parses a colour-change frame.
//
// Trailing bytes beyond FrameSize are ignored.
func DecodeColorCommand(b []byte) (Color, error) {
	if len(b) < FrameSize {
		return Color{}, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(b))
	}
	if b[OffsetTag] != FrameTag {
		return Color{}, fmt.Errorf("%w: 0x%02X", ErrBadTag, b[OffsetTag])
	}
	for i := OffsetReservedStart; i <= OffsetReservedEnd; i++ {
		if b[i] != 0 {
			return Color{}, fmt.Errorf("%w: byte %d is 0x%02X", ErrReservedNotZero, i, b[i])
		}
	}
	if b[OffsetOpcode] != OpColorChange {
		return Color{}, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, b[OffsetOpcode])
	}
	return Color{
		R: int(b[OffsetRed]),
		G: int(b[OffsetGreen]),
		B: int(b[OffsetBlue]),
	}, nil
}

// ParseFrameHex decodes a hex dump such as "42 00 ... 0A FF 00 00" into raw
// bytes. Spaces, colons and an optional 0x prefix are accepted.
func ParseFrameHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ball: parsing frame hex: %w", err)
	}
	return out, nil
}
