package video

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	overlayGreen  = color.RGBA{G: 255, A: 255}
	overlayYellow = color.RGBA{R: 255, G: 255, A: 255}
	overlayRed    = color.RGBA{R: 220, A: 255}
	overlayWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	placeholderBG = color.RGBA{R: 24, G: 24, B: 24, A: 255}
)

// Normalize downscales img so its width does not exceed maxWidth, keeping
// the aspect ratio. Frames at or under the limit are returned unchanged.
func Normalize(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return img
	}

	scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, h*maxWidth/w))
	// BiLinear is a kernel scaler: its support widens when minifying, so
	// heavy downscales integrate the source area instead of skipping pixels
	draw.BiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
	return scaled
}

// Annotate copies img and draws the camera name and current FPS in the top
// left corner, the way viewers expect from the live overlay.
func Annotate(img image.Image, name string, fps float64) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	drawString(out, name, overlayGreen, 10, 20)
	drawString(out, fmt.Sprintf("FPS: %.1f", fps), overlayYellow, 10, 40)
	return out
}

// Placeholder synthesizes the frame shown to viewers while a camera has no
// live picture: a dark background with the camera name and a disconnect
// notice.
func Placeholder(name string) *image.RGBA {
	const w, h = 640, 480

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(placeholderBG), image.Point{}, draw.Src)

	drawStringCentered(out, name, overlayWhite, h/2-10)
	drawStringCentered(out, "Disconnected", overlayRed, h/2+16)
	return out
}

func drawString(dst *image.RGBA, s string, col color.Color, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawStringCentered(dst *image.RGBA, s string, col color.Color, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(s)
	d.Dot = fixed.Point26_6{
		X: fixed.I(dst.Bounds().Dx()/2) - width/2,
		Y: fixed.I(y),
	}
	d.DrawString(s)
}
