package source

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// ColorForModelID returns a deterministic "#RRGGBB" color (upper-case hex) for
// a model id. Distinct ids get well spread but not guaranteed distinct colors.
func ColorForModelID(modelID string) string {
	h := xxhash.Sum64String(modelID)

	hue := float64(h % 360)
	saturation := 0.55 + float64((h>>16)%20)/100 // 0.55 - 0.74
	lightness := 0.45 + float64((h>>32)%15)/100  // 0.45 - 0.59

	r, g, b := hslToRGB(hue, saturation, lightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return channel(r + m), channel(g + m), channel(b + m)
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
