package monitor

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	registry = prometheus.NewRegistry()

	// InferenceSeconds 单次推理耗时, model 为 det / rec
	InferenceSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paddleocr_inference_seconds",
		Help:    "ONNX inference latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.002, 2, 12),
	}, []string{"model"})

	// InferenceErrors 推理失败次数
	InferenceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paddleocr_inference_errors_total",
		Help: "Total number of failed inference calls",
	}, []string{"model"})

	// RegionsTotal 检测到的文本区域总数
	RegionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paddleocr_regions_total",
		Help: "Total number of detected text regions",
	})

	// RequestsTotal HTTP 请求数
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paddleocr_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"route", "code"})

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paddleocr_memory_usage_megabytes",
		Help: "Resident memory usage in megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paddleocr_cpu_usage_percent",
		Help: "CPU usage in percent",
	})
)

func init() {
	registry.MustRegister(InferenceSeconds, InferenceErrors, RegionsTotal, RequestsTotal, memUsage, cpuUsage)
}

// Registry 返回指标注册表
func Registry() *prometheus.Registry {
	return registry
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveInference 记录一次推理
func ObserveInference(model string, elapsed time.Duration, err error) {
	if err != nil {
		InferenceErrors.WithLabelValues(model).Inc()
		return
	}
	InferenceSeconds.WithLabelValues(model).Observe(elapsed.Seconds())
}

// SampleProcess 按 interval 采样当前进程的内存与 CPU, 直到 ctx 结束
func SampleProcess(ctx context.Context, interval time.Duration) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sample(proc)
		}
	}
}

func sample(proc *process.Process) {
	if mem, err := proc.MemoryInfo(); err == nil {
		memUsage.Set(float64(mem.RSS / 1024 / 1024))
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		cpuUsage.Set(math.Round(cpu*100) / 100)
	}
}
