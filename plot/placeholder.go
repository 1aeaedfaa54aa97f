package plot

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// encodePlaceholder draws an empty frame with a title and a note, used when
// there is nothing to scatter yet.
func encodePlaceholder(w io.Writer, width, height int, title, note string) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	frame := color.RGBA{R: 180, G: 180, B: 180, A: 255}
	left, top, right, bottom := 60, 50, width-30, height-50
	for x := left; x <= right; x++ {
		img.SetRGBA(x, top, frame)
		img.SetRGBA(x, bottom, frame)
	}
	for y := top; y <= bottom; y++ {
		img.SetRGBA(left, y, frame)
		img.SetRGBA(right, y, frame)
	}

	face := basicfont.Face7x13
	drawCentered(img, face, title, width/2, top-18, color.Black)
	drawCentered(img, face, note, width/2, (top+bottom)/2, color.RGBA{R: 90, G: 90, B: 90, A: 255})
	drawCentered(img, face, "Year", width/2, bottom+30, color.Black)

	return png.Encode(w, img)
}

func drawCentered(dst draw.Image, face font.Face, text string, cx, baseline int, col color.Color) {
	dr := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	tw := dr.MeasureString(text).Ceil()
	dr.Dot = fixed.Point26_6{X: fixed.I(cx - tw/2), Y: fixed.I(baseline)}
	dr.DrawString(text)
}
