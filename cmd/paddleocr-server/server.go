package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	ocr "github.com/getcharzp/go-paddleocr"
	"github.com/getcharzp/go-paddleocr/internal/logger"
	"github.com/getcharzp/go-paddleocr/internal/monitor"
	"github.com/getcharzp/go-paddleocr/paddle"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type ocrEngine interface {
	RunDetect(img image.Image) ([]image.Rectangle, error)
	RunOCR(img image.Image) ([]ocr.Result, error)
}

type imageRequest struct {
	Image string `json:"image" binding:"required"`
}

type regionResponse struct {
	Box   [4]int        `json:"box"` // [x1, y1, x2, y2]
	Text  string        `json:"text,omitempty"`
	Chars []paddle.Char `json:"chars,omitempty"`
}

func newRouter(engine ocrEngine, maxBodySize int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.POST("/api/detect", func(c *gin.Context) {
		img, ok := bindImage(c, maxBodySize)
		if !ok {
			return
		}
		boxes, err := engine.RunDetect(img)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"id": requestID(c), "error": err.Error()})
			return
		}
		regions := make([]regionResponse, 0, len(boxes))
		for _, box := range boxes {
			regions = append(regions, regionResponse{Box: toBox(box)})
		}
		c.JSON(http.StatusOK, gin.H{"id": requestID(c), "results": regions})
	})
	r.POST("/api/ocr", func(c *gin.Context) {
		img, ok := bindImage(c, maxBodySize)
		if !ok {
			return
		}
		results, err := engine.RunOCR(img)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"id": requestID(c), "error": err.Error()})
			return
		}
		regions := make([]regionResponse, 0, len(results))
		for _, res := range results {
			regions = append(regions, regionResponse{Box: toBox(res.Box), Text: res.Text, Chars: res.Chars})
		}
		c.JSON(http.StatusOK, gin.H{"id": requestID(c), "results": regions})
	})
	return r
}

// requestLogger 生成请求 ID, 记录日志与指标
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set("requestID", uuid.NewString())
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		monitor.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
		logger.Log().Info("request",
			zap.String("id", requestID(c)),
			zap.String("route", route),
			zap.Int("code", code),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("requestID")
}

func bindImage(c *gin.Context, maxBodySize int64) (image.Image, bool) {
	if maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	}
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": requestID(c), "error": err.Error()})
		return nil, false
	}
	img, err := decodeBase64Image(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": requestID(c), "error": fmt.Sprintf("invalid image: %v", err)})
		return nil, false
	}
	return img, true
}

// decodeBase64Image 将 base64 字符串 (可带 data:image/... 前缀) 解码为图像
func decodeBase64Image(b64 string) (image.Image, error) {
	if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, errors.New("decoded image is empty")
	}
	return img, nil
}

func toBox(r image.Rectangle) [4]int {
	return [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}
