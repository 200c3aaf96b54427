package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
)

// 瓶颈表的列名
const (
	colStart    = "start"
	colEnd      = "end"
	colTimeI    = "time_i"
	colTimeF    = "time_f"
	colStrength = "strength"
)

var (
	bottleneckColumns = []string{colStart, colEnd, colTimeI, colTimeF, colStrength}
	columnAliases     = map[string]string{"strenght": colStrength}
)

// ReadBottlenecks 读取瓶颈表
// 功能：解析CSV格式的瓶颈表，位置单位km，时间单位min
// 参数：r-瓶颈表内容
// 返回：瓶颈原始记录列表
// 算法说明：
// 1. #开头的行为注释
// 2. 第一条包含全部列名的记录为表头，列顺序任意，此前的记录（如标题）跳过
// 3. 其余每条记录按表头解析为一个瓶颈，空行跳过
func ReadBottlenecks(r io.Reader) ([]config.Bottleneck, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var header map[string]int
	res := make([]config.Bottleneck, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidConfiguration, err)
		}
		line, _ := reader.FieldPos(0)
		if header == nil {
			header = parseHeader(record)
			if header == nil {
				log.Debugf("line %d: skip %v before header", line, record)
			}
			continue
		}
		if lo.EveryBy(record, func(s string) bool { return strings.TrimSpace(s) == "" }) {
			continue
		}
		values := make(map[string]float64, len(bottleneckColumns))
		for _, col := range bottleneckColumns {
			idx := header[col]
			if idx >= len(record) {
				return nil, fmt.Errorf("%w: line %d: missing column %s",
					entity.ErrInvalidConfiguration, line, col)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: column %s: %v",
					entity.ErrInvalidConfiguration, line, col, err)
			}
			values[col] = v
		}
		res = append(res, config.Bottleneck{
			Start:    values[colStart],
			End:      values[colEnd],
			TimeI:    values[colTimeI],
			TimeF:    values[colTimeF],
			Strength: values[colStrength],
		})
	}
	if header == nil {
		return nil, fmt.Errorf("%w: bottleneck table has no header with columns %v",
			entity.ErrInvalidConfiguration, bottleneckColumns)
	}
	return res, nil
}

// parseHeader 识别表头，返回列名到列下标的映射；不是表头时返回nil
func parseHeader(record []string) map[string]int {
	header := make(map[string]int, len(record))
	for i, field := range record {
		name := strings.ToLower(strings.TrimSpace(field))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, ok := header[name]; !ok {
			header[name] = i
		}
	}
	if !lo.EveryBy(bottleneckColumns, func(col string) bool {
		_, ok := header[col]
		return ok
	}) {
		return nil
	}
	return header
}
