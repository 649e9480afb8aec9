package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/MrWong99/voxtype/internal/coordinator"
)

// iconSize is the rendered tray icon edge length. 22px matches the common
// Linux panel row height.
const iconSize = 22

// iconColor picks the dot colour for the current daemon state. Muted wins
// over everything except an active recording, which cannot start while
// muted anyway.
func iconColor(state coordinator.State, muted bool) color.RGBA {
	switch {
	case state == coordinator.StatePushToTalk, state == coordinator.StateAlwaysListen:
		return color.RGBA{R: 235, G: 64, B: 52, A: 255} // recording red
	case muted:
		return color.RGBA{R: 235, G: 149, B: 52, A: 255} // muted orange
	default:
		return color.RGBA{R: 200, G: 200, B: 200, A: 255} // idle grey
	}
}

// iconBytes renders a filled circle in the state colour as a PNG, the format
// systray expects on Linux.
func iconBytes(state coordinator.State, muted bool) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	c := iconColor(state, muted)

	center := float64(iconSize-1) / 2
	radius := float64(iconSize) / 2.5
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) - center
			dy := float64(y) - center
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
