package ocr

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/getcharzp/go-paddleocr/paddle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(inputs map[string]paddle.Tensor) (map[string]paddle.Tensor, error)

func (f runnerFunc) Run(inputs map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
	return f(inputs)
}

var testTable = paddle.NewCharTable([]string{"a", "b"})

// detRunner 返回 [x0,x1]x[y0,y1] 为 1 的检测输出
func detRunner(width, height int, regions ...image.Rectangle) runnerFunc {
	return func(map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
		padW, padH := paddle.PadLength(width), paddle.PadLength(height)
		out := paddle.NewTensor(1, 1, int64(padH), int64(padW))
		for _, r := range regions {
			for y := r.Min.Y; y <= r.Max.Y; y++ {
				for x := r.Min.X; x <= r.Max.X; x++ {
					out.Data[y*padW+x] = 1
				}
			}
		}
		return map[string]paddle.Tensor{"sigmoid": out}, nil
	}
}

// recRunner 每个时间步输出一个字符, widths 记录每次输入宽度
func recRunner(indices []int, widths *[]int64) runnerFunc {
	return func(inputs map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
		if widths != nil {
			*widths = append(*widths, inputs[paddle.InputName].Shape[3])
		}
		classes := len(testTable)
		out := paddle.NewTensor(1, int64(len(indices)), int64(classes))
		for t, i := range indices {
			out.Data[t*classes+i] = 0.9
		}
		return map[string]paddle.Tensor{"softmax": out}, nil
	}
}

func newTestImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestEngine_RunOCR(t *testing.T) {
	var widths []int64
	engine := NewEngine(
		paddle.NewDetector(detRunner(100, 60, image.Rect(10, 20, 40, 30), image.Rect(60, 5, 80, 15)), paddle.DefaultDetConfig()),
		paddle.NewRecognizer(recRunner([]int{1, 0, 2}, &widths), testTable, paddle.DefaultRecConfig()),
	)

	results, err := engine.RunOCR(newTestImage())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, image.Rect(52, 0, 88, 26), results[0].Box)
	assert.Equal(t, image.Rect(2, 12, 48, 38), results[1].Box)
	for _, r := range results {
		assert.Equal(t, "ab", r.Text)
		assert.Equal(t, []paddle.Char{{Text: "a", Score: 0.9}, {Text: "b", Score: 0.9}}, r.Chars)
	}
	assert.Equal(t, []int64{36, 46}, widths)
}

func TestEngine_RunDetect(t *testing.T) {
	engine := NewEngine(paddle.NewDetector(detRunner(100, 60, image.Rect(10, 20, 40, 30)), paddle.DefaultDetConfig()), nil)

	boxes, err := engine.RunDetect(newTestImage())
	require.NoError(t, err)
	assert.Equal(t, []image.Rectangle{image.Rect(2, 12, 48, 38)}, boxes)

	_, err = engine.RunRecognize(newTestImage(), boxes[0])
	assert.Error(t, err)
}

func TestEngine_RunRecognize(t *testing.T) {
	var widths []int64
	engine := NewEngine(nil, paddle.NewRecognizer(recRunner([]int{2, 2, 1}, &widths), testTable, paddle.DefaultRecConfig()))

	text, err := engine.RunRecognize(newTestImage(), image.Rect(10, 10, 30, 20))
	require.NoError(t, err)
	assert.Equal(t, "bba", text)
	assert.Equal(t, []int64{20}, widths)

	_, err = engine.RunRecognize(newTestImage(), image.Rect(90, 50, 120, 70))
	assert.Error(t, err)

	_, err = engine.RunDetect(newTestImage())
	assert.Error(t, err)
	_, err = engine.RunOCR(newTestImage())
	assert.Error(t, err)
}

func TestEngine_RunOCRError(t *testing.T) {
	engineErr := errors.New("rec failed")
	engine := NewEngine(
		paddle.NewDetector(detRunner(100, 60, image.Rect(10, 20, 40, 30)), paddle.DefaultDetConfig()),
		paddle.NewRecognizer(runnerFunc(func(map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
			return nil, engineErr
		}), testTable, paddle.DefaultRecConfig()),
	)

	_, err := engine.RunOCR(newTestImage())
	assert.ErrorIs(t, err, engineErr)

	engine = NewEngine(
		paddle.NewDetector(runnerFunc(func(map[string]paddle.Tensor) (map[string]paddle.Tensor, error) {
			return map[string]paddle.Tensor{}, nil
		}), paddle.DefaultDetConfig()),
		nil,
	)
	_, err = engine.RunOCR(newTestImage())
	assert.ErrorIs(t, err, paddle.ErrNoOutput)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, paddle.DefaultDetConfig(), cfg.detConfig())
	assert.Equal(t, paddle.DefaultRecConfig(), cfg.recConfig())

	border, score := 4, float32(0.5)
	cfg = Config{BorderSize: &border, MinScore: &score}
	assert.Equal(t, 4, cfg.detConfig().BorderSize)
	assert.Equal(t, float32(0.5), cfg.recConfig().MinScore)

	// 显式的 0 不被默认值覆盖
	border, score = 0, 0
	assert.Equal(t, 0, cfg.detConfig().BorderSize)
	assert.Equal(t, float32(0), cfg.recConfig().MinScore)
}

func TestDrawBoxes(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 100))
	box := image.Rect(10, 10, 90, 90)

	dst := DrawBoxes(src, []image.Rectangle{box})
	require.Equal(t, src.Bounds(), dst.Bounds())

	var red int
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if dst.RGBAAt(x, y) == boxColor {
				red++
			}
		}
	}
	assert.Positive(t, red)
	assert.Equal(t, color.RGBA{A: 255}, dst.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{A: 255}, dst.RGBAAt(0, 0))

	// 原图不变
	for _, v := range src.Pix {
		require.Zero(t, v)
	}
}

type fakeSession struct {
	paddle.Runner
	name string
	rt   *fakeRuntime
}

func (s *fakeSession) Destroy() {
	s.rt.destroyed = append(s.rt.destroyed, s.name)
}

type fakeRuntime struct {
	runners   map[string]paddle.Runner
	errs      map[string]error
	destroyed []string
}

func (r *fakeRuntime) NewSession(name, modelPath string) (session, error) {
	if err := r.errs[name]; err != nil {
		return nil, err
	}
	return &fakeSession{Runner: r.runners[name], name: name, rt: r}, nil
}

func (r *fakeRuntime) Destroy() {
	r.destroyed = append(r.destroyed, "runtime")
}

func writeDict(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))
	return path
}

func TestNewEngine_Runtime(t *testing.T) {
	var widths []int64
	rt := &fakeRuntime{runners: map[string]paddle.Runner{
		"det": detRunner(100, 60, image.Rect(10, 20, 40, 30)),
		"rec": recRunner([]int{2, 1}, &widths),
	}}
	engine, err := newEngine(Config{DetModelPath: "det.onnx", RecModelPath: "rec.onnx", DictPath: writeDict(t)}, rt)
	require.NoError(t, err)

	results, err := engine.RunOCR(newTestImage())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ba", results[0].Text)
	assert.Empty(t, rt.destroyed)

	engine.Destroy()
	assert.Equal(t, []string{"det", "rec", "runtime"}, rt.destroyed)
	engine.Destroy()
	assert.Len(t, rt.destroyed, 3)
}

func TestNewEngine_ReleasesOnError(t *testing.T) {
	sessionErr := errors.New("创建 det 会话失败: invalid model")

	t.Run("DetSession", func(t *testing.T) {
		rt := &fakeRuntime{errs: map[string]error{"det": sessionErr}}
		_, err := newEngine(Config{DetModelPath: "det.onnx", RecModelPath: "rec.onnx", DictPath: writeDict(t)}, rt)
		// 错误只包装一层
		assert.Same(t, sessionErr, err)
		assert.Equal(t, []string{"runtime"}, rt.destroyed)
	})

	t.Run("RecSession", func(t *testing.T) {
		rt := &fakeRuntime{errs: map[string]error{"rec": sessionErr}}
		_, err := newEngine(Config{DetModelPath: "det.onnx", RecModelPath: "rec.onnx", DictPath: writeDict(t)}, rt)
		assert.Same(t, sessionErr, err)
		assert.Equal(t, []string{"det", "runtime"}, rt.destroyed)
	})

	t.Run("Dict", func(t *testing.T) {
		rt := &fakeRuntime{}
		_, err := newEngine(Config{DetModelPath: "det.onnx", RecModelPath: "rec.onnx", DictPath: filepath.Join(t.TempDir(), "missing.txt")}, rt)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, []string{"det", "runtime"}, rt.destroyed)
	})
}
