package onnx

import (
	"fmt"
	"time"

	"github.com/getcharzp/go-paddleocr/internal/monitor"
	"github.com/getcharzp/go-paddleocr/paddle"
	ort "github.com/getcharzp/onnxruntime_purego"
)

// Config onnxruntime 配置
type Config struct {
	OnnxRuntimeLibPath string

	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions
}

// New 加载 onnxruntime 动态库并创建会话选项
func (c *Config) New() error {
	if c.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("未指定 onnxruntime 库路径")
	}
	engine, err := ort.NewEngine(c.OnnxRuntimeLibPath)
	if err != nil {
		return fmt.Errorf("初始化 onnxruntime 失败: %w", err)
	}
	options, err := engine.NewSessionOptions()
	if err != nil {
		engine.Destroy()
		return fmt.Errorf("创建会话选项失败: %w", err)
	}
	c.OnnxEngine = engine
	c.SessionOptions = options
	return nil
}

// Session 实现 paddle.Runner 的 onnxruntime 会话
type Session struct {
	name    string
	session *ort.Session
}

// Destroy 释放会话选项与 onnxruntime 引擎, 需在全部会话释放之后调用
func (c *Config) Destroy() {
	if c.SessionOptions != nil {
		c.SessionOptions.Destroy()
		c.SessionOptions = nil
	}
	if c.OnnxEngine != nil {
		c.OnnxEngine.Destroy()
		c.OnnxEngine = nil
	}
}

// NewSession 从模型文件创建会话, name 用于日志与指标标签
func (c *Config) NewSession(name, modelPath string) (*Session, error) {
	session, err := c.OnnxEngine.NewSession(modelPath, c.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("创建 %s 会话失败: %w", name, err)
	}
	return &Session{name: name, session: session}, nil
}

// Run 执行推理, 输出数据拷贝后释放 onnxruntime 张量
func (s *Session) Run(inputs map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
	values := make(map[string]*ort.Value, len(inputs))
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()
	for name, t := range inputs {
		v, err := ort.NewTensor(t.Shape, t.Data)
		if err != nil {
			return nil, fmt.Errorf("创建输入张量 %s 失败: %w", name, err)
		}
		values[name] = v
	}

	start := time.Now()
	outputs, err := s.session.Run(values)
	monitor.ObserveInference(s.name, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	result := make(map[string]paddle.Tensor, len(outputs))
	for name, v := range outputs {
		if v == nil {
			continue
		}
		shape, err := v.GetShape()
		if err != nil {
			return nil, fmt.Errorf("获取输出 %s 形状失败: %w", name, err)
		}
		data, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", paddle.ErrOutputType, name, err)
		}
		t, err := outputTensor(name, shape, data)
		if err != nil {
			return nil, err
		}
		result[name] = t
	}
	if len(result) == 0 {
		return nil, paddle.ErrNoOutput
	}
	return result, nil
}

// outputTensor 校验形状与数据长度一致, 拷贝数据后返回
func outputTensor(name string, shape []int64, data []float32) (paddle.Tensor, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return paddle.Tensor{}, fmt.Errorf("%w: 输出 %s 形状 %v 无效", paddle.ErrNoOutput, name, shape)
		}
		n *= d
	}
	if n != int64(len(data)) {
		return paddle.Tensor{}, fmt.Errorf("%w: 输出 %s 形状 %v 与数据长度 %d 不一致", paddle.ErrNoOutput, name, shape, len(data))
	}
	return paddle.Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  append([]float32(nil), data...),
	}, nil
}

// Destroy 释放会话
func (s *Session) Destroy() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}
