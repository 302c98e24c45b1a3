package paddle

import (
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/getcharzp/go-paddleocr/internal/logger"
	"go.uber.org/zap"
)

const (
	// DefaultBorderSize 文本框默认外扩像素
	DefaultBorderSize = 8

	binaryThreshold = 200
	minBoxSize      = 5
)

var (
	detMean  = [3]float32{0.485, 0.456, 0.406}
	detScale = [3]float32{0.229, 0.224, 0.225}
)

// DetConfig 检测配置
type DetConfig struct {
	BorderSize int // 文本框四周外扩像素, 负数按 0 处理
}

// DefaultDetConfig 默认检测配置
func DefaultDetConfig() DetConfig {
	return DetConfig{BorderSize: DefaultBorderSize}
}

// Detector 文本区域检测
type Detector struct {
	runner     Runner
	borderSize int
}

// NewDetector 创建检测器
func NewDetector(runner Runner, cfg DetConfig) *Detector {
	return &Detector{
		runner:     runner,
		borderSize: max(cfg.BorderSize, 0),
	}
}

// FindTextRegions 检测文本区域, 返回的矩形位于 img 的坐标系内, 顺序与轮廓提取顺序一致
func (d *Detector) FindTextRegions(img image.Image) ([]image.Rectangle, error) {
	bounds := img.Bounds()
	input := d.Preprocess(img)

	start := time.Now()
	output, err := run(d.runner, input)
	if err != nil {
		return nil, fmt.Errorf("检测推理失败: %w", err)
	}
	elapsed := time.Since(start)

	prob, err := ProbabilityMap(output, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	boxes := d.FindBoxes(prob)
	for i := range boxes {
		boxes[i] = boxes[i].Add(bounds.Min)
	}
	logger.Log().Debug("文本检测完成",
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
		zap.Int("regions", len(boxes)),
		zap.Duration("inference", elapsed),
	)
	return boxes, nil
}

// FindTextCrops 检测文本区域并裁剪出对应子图
func (d *Detector) FindTextCrops(img image.Image) ([]image.Image, error) {
	boxes, err := d.FindTextRegions(img)
	if err != nil {
		return nil, err
	}
	return Crop(img, boxes)
}

// Preprocess 生成 (1, 3, padH, padW) 输入张量, 填充区域为 0
func (d *Detector) Preprocess(img image.Image) Tensor {
	b := img.Bounds()
	padW, padH := PadLength(b.Dx()), PadLength(b.Dy())
	input := NewTensor(1, 3, int64(padH), int64(padW))
	normalize(input, img, detMean, detScale)
	return input
}

// ProbabilityMap 将检测输出转置后转换为原图尺寸的灰度概率图
func ProbabilityMap(output Tensor, width, height int) (*image.Gray, error) {
	padW, padH := PadLength(width), PadLength(height)
	if len(output.Shape) != 4 || output.Shape[2] != int64(padH) || output.Shape[3] != int64(padW) ||
		output.Len() != padW*padH || len(output.Data) != padW*padH {
		return nil, fmt.Errorf("%w: 检测输出形状 %v 与输入 %dx%d 不匹配", ErrNoOutput, output.Shape, padW, padH)
	}

	raw := output.Transpose().Data
	gray := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray.Pix[y*gray.Stride+x] = toLuma(raw[TransposedIndex(x, y, padH)])
		}
	}
	return gray, nil
}

func toLuma(v float32) uint8 {
	v *= 255
	if v >= 255 {
		return 255
	}
	if !(v > 0) {
		return 0
	}
	return uint8(v)
}

// FindBoxes 提取顶层轮廓的外接矩形, 过滤噪声后外扩并限制在图像范围内
func (d *Detector) FindBoxes(prob *image.Gray) []image.Rectangle {
	b := prob.Bounds()
	var boxes []image.Rectangle
	for _, c := range FindContours(prob, binaryThreshold) {
		if c.Parent >= 0 {
			continue
		}
		rect, ok := boundingRect(c.Points)
		if !ok {
			continue
		}
		boxes = append(boxes, expandRect(rect.Sub(b.Min), d.borderSize, b.Dx(), b.Dy()).Add(b.Min))
	}
	return boxes
}

// boundingRect 点集外接矩形, 宽或高不超过 5 的视为噪声
func boundingRect(points []image.Point) (image.Rectangle, bool) {
	if len(points) == 0 {
		return image.Rectangle{}, false
	}
	r := image.Rectangle{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	if r.Dx() <= minBoxSize || r.Dy() <= minBoxSize {
		return image.Rectangle{}, false
	}
	return r, true
}

// expandRect 四周外扩 border, 左上角不小于 0, 宽高不超出图像剩余范围
func expandRect(r image.Rectangle, border, width, height int) image.Rectangle {
	left := max(r.Min.X-border, 0)
	top := max(r.Min.Y-border, 0)
	w := min(r.Dx()+2*border, width-left)
	h := min(r.Dy()+2*border, height-top)
	return image.Rect(left, top, left+w, top+h)
}

// Crop 按矩形裁剪子图
func Crop(img image.Image, boxes []image.Rectangle) ([]image.Image, error) {
	bounds := img.Bounds()
	crops := make([]image.Image, 0, len(boxes))
	for _, box := range boxes {
		if box.Empty() || !box.In(bounds) {
			return nil, fmt.Errorf("裁剪区域 %v 超出图像范围 %v", box, bounds)
		}
		crops = append(crops, imaging.Crop(img, box))
	}
	return crops, nil
}
