package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

const iconSize = 32

var iconColor = color.NRGBA{R: 0x2f, G: 0x6f, B: 0xeb, A: 0xff}

// LoadIcon reads the icon at path, or renders the default icon when path
// is empty
func LoadIcon(path string) ([]byte, error) {
	if path == "" {
		return DefaultIcon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tray icon: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tray icon %s is empty", path)
	}
	return data, nil
}

// DefaultIcon renders a filled disc as a PNG
func DefaultIcon() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))

	center := float64(iconSize-1) / 2
	radius := float64(iconSize)/2 - 1
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(x, y, iconColor)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode tray icon: %w", err)
	}
	return buf.Bytes(), nil
}
