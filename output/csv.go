package output

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/tsinghua-fib-lab/ctm-sim-oss/task"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDensityCSV 输出密度时间序列
// 功能：表头为 time_min 与各内部元胞中心位置(km)，每个快照一行
func WriteDensityCSV(w io.Writer, res *task.Result) error {
	cw := csv.NewWriter(w)
	positions := res.Positions()
	header := make([]string, 0, len(positions)+1)
	header = append(header, "time_min")
	for _, x := range positions {
		header = append(header, formatFloat(x))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(positions)+1)
	for step, t := range res.Times() {
		row[0] = formatFloat(t)
		for i := range positions {
			row[i+1] = formatFloat(res.Series.At(step, i))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveDensityCSV 将密度时间序列写入文件
func SaveDensityCSV(path string, res *task.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDensityCSV(f, res); err != nil {
		f.Close()
		return err
	}
	log.Infof("density series saved to %s", path)
	return f.Close()
}
