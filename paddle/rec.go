package paddle

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/getcharzp/go-paddleocr/internal/logger"
	"go.uber.org/zap"
)

const (
	// DefaultMinScore 字符默认最低置信度
	DefaultMinScore float32 = 0.8

	recHeight = 48
)

var (
	recMean  = [3]float32{0.5, 0.5, 0.5}
	recScale = [3]float32{0.5, 0.5, 0.5}
)

// RecConfig 识别配置
type RecConfig struct {
	MinScore float32 // 置信度必须严格大于该值才保留
}

// DefaultRecConfig 默认识别配置
func DefaultRecConfig() RecConfig {
	return RecConfig{MinScore: DefaultMinScore}
}

// Char 单个识别字符及其置信度
type Char struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// Recognizer 文本行识别
type Recognizer struct {
	runner   Runner
	table    []string
	minScore float32
}

// NewRecognizer 创建识别器, table 为 NewCharTable 生成的字符表
func NewRecognizer(runner Runner, table []string, cfg RecConfig) *Recognizer {
	return &Recognizer{
		runner:   runner,
		table:    append([]string(nil), table...),
		minScore: cfg.MinScore,
	}
}

// RecognizeCharacters 识别文本行, 返回逐字符结果
func (r *Recognizer) RecognizeCharacters(img image.Image) ([]Char, error) {
	input := r.Preprocess(img)

	start := time.Now()
	output, err := run(r.runner, input)
	if err != nil {
		return nil, fmt.Errorf("识别推理失败: %w", err)
	}
	elapsed := time.Since(start)

	chars, err := r.Decode(output)
	if err != nil {
		return nil, err
	}
	logger.Log().Debug("文本识别完成",
		zap.Int64("width", input.Shape[3]),
		zap.Int("chars", len(chars)),
		zap.Duration("inference", elapsed),
	)
	return chars, nil
}

// RecognizeText 识别文本行, 返回拼接后的字符串
func (r *Recognizer) RecognizeText(img image.Image) (string, error) {
	chars, err := r.RecognizeCharacters(img)
	if err != nil {
		return "", err
	}
	return JoinChars(chars), nil
}

// Preprocess 高度超过 48 时缩放到 48 (宽度不变), 生成 (1, 3, 48, W) 输入张量
func (r *Recognizer) Preprocess(img image.Image) Tensor {
	b := img.Bounds()
	width := b.Dx()
	if b.Dy() > recHeight {
		img = imaging.Resize(img, width, recHeight, imaging.CatmullRom)
	}
	input := NewTensor(1, 3, recHeight, int64(width))
	normalize(input, img, recMean, recScale)
	return input
}

// Decode 逐时间步取最大值下标, 过滤空白符与低置信度结果; 不合并相邻重复字符
func (r *Recognizer) Decode(output Tensor) ([]Char, error) {
	if len(output.Shape) != 3 || output.Len() != len(output.Data) {
		return nil, fmt.Errorf("%w: 识别输出形状 %v 无效", ErrNoOutput, output.Shape)
	}
	steps, classes := int(output.Shape[1]), int(output.Shape[2])
	if classes == 0 {
		return nil, nil
	}

	var chars []Char
	for t := 0; t < steps; t++ {
		row := output.Data[t*classes : (t+1)*classes]
		index, score := argmax(row)
		if index == 0 || !(score > r.minScore) {
			continue
		}
		if index >= len(r.table) {
			continue
		}
		chars = append(chars, Char{Text: r.table[index], Score: score})
	}
	return chars, nil
}

// argmax 相同最大值时取最小下标
func argmax(row []float32) (int, float32) {
	index, score := 0, row[0]
	for i, v := range row[1:] {
		if v > score {
			index, score = i+1, v
		}
	}
	return index, score
}

// JoinChars 按顺序拼接字符
func JoinChars(chars []Char) string {
	var sb strings.Builder
	for _, c := range chars {
		sb.WriteString(c.Text)
	}
	return sb.String()
}
