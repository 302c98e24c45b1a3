package ocr

import (
	"image"
	"image/color"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/draw"
)

var boxColor = color.RGBA{R: 255, A: 255}

// DrawBoxes 在图像副本上绘制检测框
func DrawBoxes(img image.Image, boxes []image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	for _, box := range boxes {
		imageutil.DrawThickRectOutline(dst, box, boxColor, 2)
	}
	return dst
}
