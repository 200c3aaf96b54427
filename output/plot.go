package output

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/task"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
	paletteLen = 255
)

// DensityGrid 密度时空网格
// 功能：以矩阵保存密度时间序列（行为快照，列为元胞），实现plotter.GridXYZ
// 说明：X为元胞中心位置(km)，Y为时刻(min)
type DensityGrid struct {
	m *mat.Dense
	x []float64
	y []float64
}

// NewDensityGrid 由模拟结果构建密度网格
func NewDensityGrid(res *task.Result) *DensityGrid {
	rows, cols := res.Series.Len(), res.Series.NumCells()
	data := make([]float64, 0, rows*cols)
	for _, row := range res.Series.Rows() {
		data = append(data, row...)
	}
	return &DensityGrid{
		m: mat.NewDense(rows, cols, data),
		x: res.Positions(),
		y: res.Times(),
	}
}

// Dims 列数（元胞）与行数（快照）
func (g *DensityGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g *DensityGrid) Z(c, r int) float64 {
	return g.m.At(r, c)
}

func (g *DensityGrid) X(c int) float64 {
	return g.x[c]
}

func (g *DensityGrid) Y(r int) float64 {
	return g.y[r]
}

// Max 网格中的最大密度
func (g *DensityGrid) Max() float64 {
	return mat.Max(g.m)
}

// SaveHeatmap 绘制密度时空热力图
// 功能：横轴为位置(km)，纵轴为时间(min)，颜色范围固定为[0, DensityMax*NumLanes]
// 参数：path-输出文件，扩展名决定格式（png、svg、pdf等）
func SaveHeatmap(path string, res *task.Result) error {
	grid := NewDensityGrid(res)
	c, r := grid.Dims()
	if c < 2 || r < 2 {
		return fmt.Errorf("heatmap needs at least 2x2 grid, got %dx%d", c, r)
	}
	limit := res.Constants.DensityLimit()

	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(limit)
	h := plotter.NewHeatMap(grid, cm.Palette(paletteLen))
	h.Min, h.Max = 0, limit

	p := plot.New()
	p.Title.Text = "Density distribution over time"
	p.X.Label.Text = "position (km)"
	p.Y.Label.Text = "time (min)"
	p.Add(h)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return err
	}
	log.Infof("heatmap saved to %s (max density %.2f veh/km)", path, grid.Max())
	return nil
}

// profileSteps 在[0, total)中均匀选取n个快照下标（含首尾）
func profileSteps(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n == 1 || total == 1 {
		return []int{total - 1}
	}
	steps := make([]int, n)
	for i := range steps {
		steps[i] = i * (total - 1) / (n - 1)
	}
	return lo.Uniq(steps)
}

// SaveProfiles 绘制若干时刻的密度剖面
// 功能：在n个均匀分布的时刻绘制 密度-位置 曲线
func SaveProfiles(path string, res *task.Result, n int) error {
	p := plot.New()
	p.Title.Text = "Density profiles"
	p.X.Label.Text = "position (km)"
	p.Y.Label.Text = "density (veh/km)"
	p.Y.Min = 0
	p.Y.Max = res.Constants.DensityLimit()

	positions := res.Positions()
	times := res.Times()
	for i, step := range profileSteps(res.Series.Len(), n) {
		xys := make(plotter.XYs, len(positions))
		for j, x := range positions {
			xys[j] = plotter.XY{X: x, Y: res.Series.At(step, j)}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("t=%.1f min", times[step]), line)
	}
	p.Legend.Top = true

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return err
	}
	log.Infof("profiles saved to %s", path)
	return nil
}
