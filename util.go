package ocr

import (
	"fmt"
	"runtime"
)

// defaultLibDir onnxruntime 动态库默认目录
const defaultLibDir = "./lib/"

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	return libraryPath(runtime.GOOS, runtime.GOARCH)
}

func libraryPath(goos, goarch string) string {
	const libName = "onnxruntime"

	// windows onnxruntime.dll
	if goos == "windows" {
		return defaultLibDir + libName + ".dll"
	}

	var ext string
	switch goos {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return defaultLibDir + libName + "_amd64.so"
	}

	// ./lib/onnxruntime_amd64.so, ./lib/onnxruntime_arm64.dylib ...
	return fmt.Sprintf("%s%s_%s.%s", defaultLibDir, libName, goarch, ext)
}
