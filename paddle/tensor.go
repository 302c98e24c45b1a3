package paddle

import (
	"fmt"
	"sort"
)

// InputName 模型输入节点名称
const InputName = "x"

// padAlign 检测模型输入的宽高对齐值
const padAlign = 32

// Tensor float32 张量, Data 按 Shape 行优先存储
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Runner 推理会话, 输入/输出均以节点名称索引
type Runner interface {
	Run(inputs map[string]Tensor) (map[string]Tensor, error)
}

// NewTensor 创建全零张量
func NewTensor(shape ...int64) Tensor {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: shape, Data: make([]float32, n)}
}

// Len 按 Shape 计算的元素数量
func (t Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Transpose 反转全部维度 (等价于 ndarray 的 .t()), 返回新的行优先张量
func (t Tensor) Transpose() Tensor {
	rank := len(t.Shape)
	out := Tensor{Shape: make([]int64, rank), Data: make([]float32, len(t.Data))}
	for i, d := range t.Shape {
		out.Shape[rank-1-i] = d
	}
	if rank == 0 || len(t.Data) == 0 {
		copy(out.Data, t.Data)
		return out
	}

	// 源张量各维度步长
	strides := make([]int, rank)
	stride := 1
	for i := rank - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= int(t.Shape[i])
	}

	idx := make([]int, rank) // 目标张量下标, idx[k] 对应源维度 rank-1-k
	for o := range out.Data {
		src := 0
		for k := 0; k < rank; k++ {
			src += idx[k] * strides[rank-1-k]
		}
		out.Data[o] = t.Data[src]
		for k := rank - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < int(out.Shape[k]) {
				break
			}
			idx[k] = 0
		}
	}
	return out
}

// PadLength 向上对齐到 32 的倍数
func PadLength(n int) int {
	if i := n % padAlign; i != 0 {
		return n + padAlign - i
	}
	return n
}

// TransposedIndex 检测输出转置后像素 (x, y) 的线性下标
func TransposedIndex(x, y, padH int) int {
	return x*padH + y
}

// firstOutput 按名称排序取第一个输出
func firstOutput(outputs map[string]Tensor) (Tensor, error) {
	if len(outputs) == 0 {
		return Tensor{}, ErrNoOutput
	}
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := outputs[names[0]]
	if out.Data == nil {
		return Tensor{}, fmt.Errorf("%w: %s", ErrNoOutput, names[0])
	}
	return out, nil
}

// run 执行单输入推理并返回第一个输出
func run(r Runner, input Tensor) (Tensor, error) {
	outputs, err := r.Run(map[string]Tensor{InputName: input})
	if err != nil {
		return Tensor{}, err
	}
	return firstOutput(outputs)
}
