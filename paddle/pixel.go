package paddle

import (
	"image"
	"image/color"
)

// rgbAt 读取像素的 8 位 RGB 分量 (非预乘, 忽略 alpha)
func rgbAt(img image.Image, x, y int) (r, g, b uint8) {
	if src, ok := img.(*image.NRGBA); ok {
		i := src.PixOffset(x, y)
		return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B
}

// normalize 将图像按通道归一化写入 (1, 3, H, W) 张量, 超出图像范围的位置保持 0
func normalize(t Tensor, img image.Image, mean, scale [3]float32) {
	height, width := int(t.Shape[2]), int(t.Shape[3])
	area := height * width
	b := img.Bounds()
	for y := 0; y < b.Dy() && y < height; y++ {
		for x := 0; x < b.Dx() && x < width; x++ {
			r, g, bl := rgbAt(img, b.Min.X+x, b.Min.Y+y)
			i := y*width + x
			t.Data[i] = (float32(r)/255.0 - mean[0]) / scale[0]
			t.Data[area+i] = (float32(g)/255.0 - mean[1]) / scale[1]
			t.Data[2*area+i] = (float32(bl)/255.0 - mean[2]) / scale[2]
		}
	}
}
