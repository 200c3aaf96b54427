package output

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/task"
)

const (
	ChartFile          = "density.html" // 交互式密度图文件名
	DefaultChartPoints = 50000          // 交互式密度图的默认最大点数
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderChart 输出交互式密度时空图（HTML）
// 功能：每个(位置, 时刻)为一个点，颜色表示密度，范围固定为[0, DensityMax*NumLanes]
// 说明：快照过多时按stride抽样，保证页面中的点数不超过maxPoints
func RenderChart(w io.Writer, res *task.Result, maxPoints int) error {
	positions, times := res.Positions(), res.Times()
	stride := 1
	if total := len(positions) * len(times); maxPoints > 0 && total > maxPoints {
		stride = (total + maxPoints - 1) / maxPoints
	}
	data := make([]opts.ScatterData, 0, len(positions)*len(times)/stride+1)
	for step := 0; step < len(times); step += stride {
		for i, x := range positions {
			data = append(data, opts.ScatterData{Value: []interface{}{x, times[step], res.Series.At(step, i)}})
		}
	}

	c := res.Constants
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Density distribution over time", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Density distribution over time", Subtitle: fmt.Sprintf("cells=%d dx=%.3fkm dt=%.1fs stride=%d", c.NumCells, c.CellLength, c.DT*3600, stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: c.RoadLength, Name: "position (km)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: times[len(times)-1], Name: "time (min)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(c.DensityLimit()),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("density", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter.Render(w)
}

// SaveChart 将交互式密度图写入文件
func SaveChart(path string, res *task.Result, maxPoints int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderChart(f, res, maxPoints); err != nil {
		f.Close()
		return err
	}
	log.Infof("chart saved to %s", path)
	return f.Close()
}
