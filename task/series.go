package task

import (
	"fmt"

	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity/road"
)

// Series 密度时间序列
// 功能：按步保存内部元胞的密度快照，只追加不修改
// 说明：第0个快照为初始状态，第k个快照为第k步更新后的状态
type Series struct {
	numCells int
	rows     [][]float64
}

// NewSeries 创建每个快照包含numCells个值的时间序列
func NewSeries(numCells int) *Series {
	return &Series{
		numCells: numCells,
		rows:     make([][]float64, 0),
	}
}

// Append 追加一个快照（保存副本）
func (s *Series) Append(density []float64) {
	if len(density) != s.numCells {
		log.Panicf("snapshot has %d values, expect %d", len(density), s.numCells)
	}
	s.rows = append(s.rows, append([]float64(nil), density...))
}

// Len 快照数量
func (s *Series) Len() int {
	return len(s.rows)
}

// NumCells 每个快照的值数量
func (s *Series) NumCells() int {
	return s.numCells
}

// At 第step个快照中第cell个内部元胞的密度
func (s *Series) At(step, cell int) float64 {
	return s.rows[step][cell]
}

// Row 第step个快照的副本
func (s *Series) Row(step int) []float64 {
	return append([]float64(nil), s.rows[step]...)
}

// Rows 全部快照的副本
func (s *Series) Rows() [][]float64 {
	res := make([][]float64, len(s.rows))
	for i, row := range s.rows {
		res[i] = append([]float64(nil), row...)
	}
	return res
}

// Result 一次模拟的结果
// 功能：密度时间序列与绘图坐标所需的模型常量
type Result struct {
	Series    *Series
	Constants road.Constants
}

// Positions 各内部元胞中心的位置(km)
func (r *Result) Positions() []float64 {
	res := make([]float64, r.Series.NumCells())
	for i := range res {
		res[i] = (float64(i) + 0.5) * r.Constants.CellLength
	}
	return res
}

// Times 各快照的时刻(min)
func (r *Result) Times() []float64 {
	res := make([]float64, r.Series.Len())
	for i := range res {
		res[i] = float64(i) * r.Constants.DT * 60
	}
	return res
}

func (r *Result) String() string {
	return fmt.Sprintf("Result{%d snapshots x %d cells, dx=%.4fkm, dt=%.2fs}",
		r.Series.Len(), r.Series.NumCells(), r.Constants.CellLength, r.Constants.DT*3600)
}
