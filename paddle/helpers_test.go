package paddle

import (
	"image"
	"image/color"
)

type fakeRunner struct {
	fn     func(input Tensor) map[string]Tensor
	err    error
	inputs []map[string]Tensor
}

func (f *fakeRunner) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	f.inputs = append(f.inputs, inputs)
	if f.err != nil {
		return nil, f.err
	}
	return f.fn(inputs[InputName]), nil
}

func solidImage(r image.Rectangle, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillGray 将 [x0,x1)x[y0,y1) 填充为 v
func fillGray(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func contourBounds(c Contour) image.Rectangle {
	r, _ := boundingRectAll(c.Points)
	return r
}

func boundingRectAll(points []image.Point) (image.Rectangle, bool) {
	if len(points) == 0 {
		return image.Rectangle{}, false
	}
	r := image.Rectangle{Min: points[0], Max: points[0]}
	for _, p := range points {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r, true
}

func fillImage(img *image.NRGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}
