package input

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
)

// ReadParams 读取道路参数文件
// 功能：解析 name=value 形式的参数文件
// 参数：r-参数文件内容
// 返回：参数名到参数值的映射
// 算法说明：
// 1. 空行与#开头的注释行忽略
// 2. 第一个参数之前无法解析为数值的行视为标题行（如 variable=value）并跳过
// 3. 此后出现非数值或重复的参数名均返回ErrInvalidConfiguration
func ReadParams(r io.Reader) (map[string]float64, error) {
	res := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, raw, ok := strings.Cut(line, "=")
		name, raw = strings.TrimSpace(name), strings.TrimSpace(raw)
		if ok && name != "" && raw == "" {
			// 缺失值的行直接丢弃
			log.Debugf("line %d: drop %q without value", lineNo, name)
			continue
		}
		var value float64
		var err error
		if ok {
			value, err = strconv.ParseFloat(raw, 64)
		}
		if !ok || err != nil || name == "" {
			if len(res) == 0 {
				log.Debugf("line %d: skip header %q", lineNo, line)
				continue
			}
			return nil, fmt.Errorf("%w: line %d: expect name=number, got %q",
				entity.ErrInvalidConfiguration, lineNo, line)
		}
		if _, dup := res[name]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicated parameter %q",
				entity.ErrInvalidConfiguration, lineNo, name)
		}
		res[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
