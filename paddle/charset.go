package paddle

import (
	"fmt"

	"github.com/getcharzp/go-paddleocr/internal/util"
)

// blank 字符表首尾的占位符, 下标 0 表示无字符
const blank = " "

// NewCharTable 在字典首尾各加一个空格占位符生成字符表
func NewCharTable(dict []string) []string {
	table := make([]string, 0, len(dict)+2)
	table = append(table, blank)
	table = append(table, dict...)
	return append(table, blank)
}

// LoadCharTable 从字典文件加载字符表
func LoadCharTable(path string) ([]string, error) {
	dict, err := util.LoadDict(path)
	if err != nil {
		return nil, fmt.Errorf("加载字符集失败: %w", err)
	}
	return NewCharTable(dict), nil
}
