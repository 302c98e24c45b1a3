package main

import (
	"fmt"
	"os"

	ocr "github.com/getcharzp/go-paddleocr"
	"gopkg.in/yaml.v3"
)

type configStruct struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metricsPort"`
	LogMode     string `yaml:"logMode"`
	LogLevel    string `yaml:"logLevel"`
	MaxBodySize int64  `yaml:"maxBodySize"` // 请求体上限, 字节

	Engine ocr.Config `yaml:"engine"`
}

func loadConfig(path string) (configStruct, error) {
	config := configStruct{
		Port:        8080,
		MaxBodySize: 20 << 20,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if config.Port <= 0 {
		return config, fmt.Errorf("端口无效: %d", config.Port)
	}
	if config.Engine.DetModelPath == "" || config.Engine.RecModelPath == "" {
		return config, fmt.Errorf("必须同时配置检测与识别模型")
	}
	return config, nil
}
