package ocr

import (
	"fmt"
	"image"
	"time"

	"github.com/getcharzp/go-paddleocr/internal/logger"
	"github.com/getcharzp/go-paddleocr/internal/monitor"
	"github.com/getcharzp/go-paddleocr/internal/onnx"
	"github.com/getcharzp/go-paddleocr/paddle"
	"github.com/up-zero/gotool/convertutil"
	"go.uber.org/zap"
)

// Config PaddleOCR 配置信息
type Config struct {
	OnnxRuntimeLibPath string   `yaml:"onnxRuntimeLibPath"` // 为空时使用 DefaultLibraryPath()
	DetModelPath       string   `yaml:"detModelPath"`
	RecModelPath       string   `yaml:"recModelPath"`
	DictPath           string   `yaml:"dictPath"`
	BorderSize         *int     `yaml:"borderSize"` // 文本框外扩像素, 未设置时为 8
	MinScore           *float32 `yaml:"minScore"`   // 字符最低置信度, 未设置时为 0.8
}

// Result 单个文本区域的识别结果
type Result struct {
	Box   image.Rectangle
	Text  string
	Chars []paddle.Char
}

// session 可释放的推理会话
type session interface {
	paddle.Runner
	Destroy()
}

// ortRuntime 推理运行时, 会话全部释放后再释放运行时
type ortRuntime interface {
	NewSession(name, modelPath string) (session, error)
	Destroy()
}

type onnxRuntime struct {
	*onnx.Config
}

func (r onnxRuntime) NewSession(name, modelPath string) (session, error) {
	s, err := r.Config.NewSession(name, modelPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Engine PaddleOCR 引擎
type Engine struct {
	runtime    ortRuntime
	detSession session
	recSession session
	detector   *paddle.Detector
	recognizer *paddle.Recognizer
}

// NewPaddleOcrEngine 初始化引擎, 检测/识别模型路径为空时不加载对应模型
func NewPaddleOcrEngine(cfg Config) (*Engine, error) {
	if cfg.OnnxRuntimeLibPath == "" {
		cfg.OnnxRuntimeLibPath = DefaultLibraryPath()
	}

	oc := new(onnx.Config)
	_ = convertutil.CopyProperties(cfg, oc)
	if err := oc.New(); err != nil {
		return nil, err
	}
	return newEngine(cfg, onnxRuntime{oc})
}

// newEngine 在 rt 上创建会话, 失败时释放已创建的会话与 rt
func newEngine(cfg Config, rt ortRuntime) (*Engine, error) {
	detCfg, recCfg := cfg.detConfig(), cfg.recConfig()
	engine := &Engine{runtime: rt}

	if cfg.DetModelPath != "" {
		s, err := rt.NewSession("det", cfg.DetModelPath)
		if err != nil {
			engine.Destroy()
			return nil, err
		}
		engine.detSession = s
		engine.detector = paddle.NewDetector(s, detCfg)
	}

	if cfg.RecModelPath != "" {
		table, err := paddle.LoadCharTable(cfg.DictPath)
		if err != nil {
			engine.Destroy()
			return nil, err
		}
		s, err := rt.NewSession("rec", cfg.RecModelPath)
		if err != nil {
			engine.Destroy()
			return nil, err
		}
		engine.recSession = s
		engine.recognizer = paddle.NewRecognizer(s, table, recCfg)
	}

	logger.Log().Info("PaddleOCR 引擎初始化完成",
		zap.String("det", cfg.DetModelPath),
		zap.String("rec", cfg.RecModelPath),
		zap.Int("borderSize", detCfg.BorderSize),
		zap.Float32("minScore", recCfg.MinScore),
	)
	return engine, nil
}

// NewEngine 使用已有的检测器与识别器创建引擎, 任一参数可为 nil
func NewEngine(detector *paddle.Detector, recognizer *paddle.Recognizer) *Engine {
	return &Engine{detector: detector, recognizer: recognizer}
}

func (c Config) detConfig() paddle.DetConfig {
	cfg := paddle.DefaultDetConfig()
	if c.BorderSize != nil {
		cfg.BorderSize = *c.BorderSize
	}
	return cfg
}

func (c Config) recConfig() paddle.RecConfig {
	cfg := paddle.DefaultRecConfig()
	if c.MinScore != nil {
		cfg.MinScore = *c.MinScore
	}
	return cfg
}

// RunDetect 检测文本区域
func (e *Engine) RunDetect(img image.Image) ([]image.Rectangle, error) {
	if e.detector == nil {
		return nil, fmt.Errorf("检测引擎未初始化")
	}
	boxes, err := e.detector.FindTextRegions(img)
	if err != nil {
		return nil, err
	}
	monitor.RegionsTotal.Add(float64(len(boxes)))
	return boxes, nil
}

// RunRecognize 识别 img 中 box 区域的文本
func (e *Engine) RunRecognize(img image.Image, box image.Rectangle) (string, error) {
	chars, err := e.recognizeBox(img, box)
	if err != nil {
		return "", err
	}
	return paddle.JoinChars(chars), nil
}

func (e *Engine) recognizeBox(img image.Image, box image.Rectangle) ([]paddle.Char, error) {
	if e.recognizer == nil {
		return nil, fmt.Errorf("识别引擎未初始化")
	}
	crops, err := paddle.Crop(img, []image.Rectangle{box})
	if err != nil {
		return nil, err
	}
	return e.recognizer.RecognizeCharacters(crops[0])
}

// RunOCR 检测后逐个区域识别, 结果顺序与检测顺序一致
func (e *Engine) RunOCR(img image.Image) ([]Result, error) {
	start := time.Now()
	boxes, err := e.RunDetect(img)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(boxes))
	for _, box := range boxes {
		chars, err := e.recognizeBox(img, box)
		if err != nil {
			return nil, fmt.Errorf("识别区域 %v 失败: %w", box, err)
		}
		results = append(results, Result{Box: box, Text: paddle.JoinChars(chars), Chars: chars})
	}
	logger.Log().Debug("OCR 完成", zap.Int("regions", len(results)), zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Destroy 释放会话与推理运行时, 可重复调用
func (e *Engine) Destroy() {
	if e.detSession != nil {
		e.detSession.Destroy()
		e.detSession = nil
	}
	if e.recSession != nil {
		e.recSession.Destroy()
		e.recSession = nil
	}
	if e.runtime != nil {
		e.runtime.Destroy()
		e.runtime = nil
	}
}
