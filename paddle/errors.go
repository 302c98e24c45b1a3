package paddle

import "errors"

var (
	// ErrNoOutput 推理未返回输出张量, 或输出元素数量不足
	ErrNoOutput = errors.New("no output")
	// ErrOutputType 输出张量元素类型不是 float32
	ErrOutputType = errors.New("output tensor is not float32")
)
