package ball

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeColorCommand_Layout(t *testing.T) {
	tests := []struct {
		name  string
		color Color
		want  []byte
	}{
		{
			name:  "red",
			color: Color{R: 255},
			want:  []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0xFF, 0x00, 0x00},
		},
		{
			name:  "black",
			color: Color{},
			want:  []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0x00, 0x00, 0x00},
		},
		{
			name:  "white",
			color: White,
			want:  []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0xFF, 0xFF, 0xFF},
		},
		{
			name:  "mixed",
			color: Color{R: 1, G: 128, B: 254},
			want:  []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0x01, 0x80, 0xFE},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := EncodeColorCommand(tt.color)
			if err != nil {
				t.Fatalf("EncodeColorCommand() error = %v", err)
			}
			if !bytes.Equal(f.Bytes(), tt.want) {
				t.Errorf("frame = % X, want % X", f.Bytes(), tt.want)
			}
		})
	}
}

func TestEncodeColorCommand_ReservedAlwaysZero(t *testing.T) {
	for v := 0; v <= 255; v += 17 {
		f, err := EncodeColorCommand(Color{R: v, G: 255 - v, B: v / 2})
		if err != nil {
			t.Fatalf("EncodeColorCommand(%d) error = %v", v, err)
		}
		if f[OffsetTag] != FrameTag {
			t.Fatalf("tag = 0x%02X, want 0x42", f[OffsetTag])
		}
		for i := OffsetReservedStart; i <= OffsetReservedEnd; i++ {
			if f[i] != 0 {
				t.Fatalf("byte %d = 0x%02X, want 0", i, f[i])
			}
		}
	}
}

func TestEncodeColorCommand_InvalidColor(t *testing.T) {
	tests := []Color{
		{R: 256},
		{G: -1},
		{B: 1000},
		{R: -255, G: 300, B: 0},
	}
	for _, c := range tests {
		t.Run(c.String(), func(t *testing.T) {
			f, err := EncodeColorCommand(c)
			if !errors.Is(err, ErrInvalidColor) {
				t.Fatalf("EncodeColorCommand() error = %v, want ErrInvalidColor", err)
			}
			if f != (Frame{}) {
				t.Errorf("frame = %s, want zero frame on error", f)
			}
		})
	}
}

func TestFrame_String(t *testing.T) {
	f, err := EncodeColorCommand(Color{R: 255})
	if err != nil {
		t.Fatal(err)
	}
	want := "42 00 00 00 00 00 00 00 0A FF 00 00"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDecodeColorCommand_RoundTrip(t *testing.T) {
	for _, c := range []Color{{}, White, {R: 12, G: 34, B: 56}} {
		f, err := EncodeColorCommand(c)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeColorCommand(f.Bytes())
		if err != nil {
			t.Fatalf("DecodeColorCommand() error = %v", err)
		}
		if got != c {
			t.Errorf("DecodeColorCommand() = %v, want %v", got, c)
		}
	}
}

func TestDecodeColorCommand_Errors(t *testing.T) {
	valid := []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 1, 2, 3}
	mutate := func(i int, v byte) []byte {
		b := append([]byte(nil), valid...)
		b[i] = v
		return b
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{name: "empty", input: nil, want: ErrShortFrame},
		{name: "short", input: valid[:11], want: ErrShortFrame},
		{name: "bad tag", input: mutate(0, 0x43), want: ErrBadTag},
		{name: "reserved set", input: mutate(4, 1), want: ErrReservedNotZero},
		{name: "last reserved set", input: mutate(7, 0xFF), want: ErrReservedNotZero},
		{name: "unknown opcode", input: mutate(8, 0x0B), want: ErrUnknownOpcode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeColorCommand(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeColorCommand() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeColorCommand_IgnoresTrailingBytes(t *testing.T) {
	b := []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 9, 8, 7, 0xEE}
	got, err := DecodeColorCommand(b)
	if err != nil {
		t.Fatalf("DecodeColorCommand() error = %v", err)
	}
	if got != (Color{R: 9, G: 8, B: 7}) {
		t.Errorf("DecodeColorCommand() = %v", got)
	}
}

func TestParseFrameHex(t *testing.T) {
	for _, in := range []string{
		"42 00 00 00 00 00 00 00 0A FF 00 00",
		"0x4200000000000000 0aff0000",
		"42:00:00:00:00:00:00:00:0a:ff:00:00",
	} {
		b, err := ParseFrameHex(in)
		if err != nil {
			t.Fatalf("ParseFrameHex(%q) error = %v", in, err)
		}
		c, err := DecodeColorCommand(b)
		if err != nil {
			t.Fatalf("DecodeColorCommand(%q) error = %v", in, err)
		}
		if c != (Color{R: 255}) {
			t.Errorf("decoded %q = %v, want red", in, c)
		}
	}

	if _, err := ParseFrameHex("zz"); err == nil {
		t.Error("ParseFrameHex(zz) expected error")
	}
}

func TestColor_Hex(t *testing.T) {
	if got := (Color{R: 255, G: 165}).Hex(); got != "#ffa500" {
		t.Errorf("Hex() = %q, want #ffa500", got)
	}
	if got := (Color{R: 300, G: -4, B: 16}).Hex(); got != "#ff0010" {
		t.Errorf("Hex() = %q, want clamped #ff0010", got)
	}
}
