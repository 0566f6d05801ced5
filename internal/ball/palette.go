package ball

import (
	"fmt"
	"strconv"
	"strings"
)

// NamedColor is an entry in the predefined palette.
type NamedColor struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// palette is kept in display order.
var palette = []NamedColor{
	{Name: "red", Color: Color{R: 255}},
	{Name: "green", Color: Color{G: 255}},
	{Name: "blue", Color: Color{B: 255}},
	{Name: "yellow", Color: Color{R: 255, G: 255}},
	{Name: "cyan", Color: Color{G: 255, B: 255}},
	{Name: "magenta", Color: Color{R: 255, B: 255}},
	{Name: "white", Color: White},
	{Name: "orange", Color: Color{R: 255, G: 165}},
	{Name: "purple", Color: Color{R: 128, B: 128}},
	{Name: "pink", Color: Color{R: 255, G: 192, B: 203}},
	{Name: "lime", Color: Color{G: 255}},
	{Name: "teal", Color: Color{G: 128, B: 128}},
}

// Palette returns a copy of the predefined colours.
func Palette() []NamedColor {
	out := make([]NamedColor, len(palette))
	copy(out, palette)
	return out
}

// LookupColor finds a palette colour by case-insensitive name.
func LookupColor(name string) (Color, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, nc := range palette {
		if nc.Name == name {
			return nc.Color, true
		}
	}
	return Color{}, false
}

// ParseColor accepts "#rrggbb", "rrggbb", "r,g,b" or a palette name.
//
// The r,g,b form is parsed without range checks so out-of-range values reach
// EncodeColorCommand and fail there with ErrInvalidColor.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, fmt.Errorf("%w: empty", ErrInvalidColor)
	}

	if c, ok := LookupColor(s); ok {
		return c, nil
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return Color{}, fmt.Errorf("%w: %q needs three channels", ErrInvalidColor, s)
		}
		var ch [3]int
		for i, p := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
			}
			ch[i] = v
		}
		return Color{R: ch[0], G: ch[1], B: ch[2]}, nil
	}

	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{
		R: int(v >> 16 & 0xFF),
		G: int(v >> 8 & 0xFF),
		B: int(v & 0xFF),
	}, nil
}
