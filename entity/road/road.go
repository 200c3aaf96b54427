package road

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"gonum.org/v1/gonum/floats"
)

const (
	defaultRelativeTolerance = 1e-9 // 密度越界检查的默认相对容差
	chunkSize                = 1024 // 并行更新时每个任务处理的元胞数
)

// span 元胞下标区间[lo, hi)
type span struct {
	lo, hi int
}

// Road 道路实体
// 功能：持有有序元胞序列（首尾为source/sink边界元胞）与派生常量，执行每步的密度更新
// 说明：元胞以连续数组存储，相邻元胞通过下标访问
type Road struct {
	c Constants

	cells []Cell    // NumCells+2个元胞，0为source，NumCells+1为sink
	flows []float64 // 上一步的NumCells+1个边界流量

	tolerance float64 // 密度越界检查容差
	chunks    []span  // 非空时并行更新元胞
}

// Option Road构建选项
type Option func(*Road)

// WithTolerance 设置密度越界检查的绝对容差，非正值保持默认
func WithTolerance(tol float64) Option {
	return func(r *Road) {
		if tol > 0 {
			r.tolerance = tol
		}
	}
}

// WithParallelThreshold 内部元胞数不少于threshold时并行执行元胞更新，非正值表示不并行
func WithParallelThreshold(threshold int) Option {
	return func(r *Road) {
		if threshold <= 0 || r.c.NumCells < threshold {
			r.chunks = nil
			return
		}
		r.chunks = make([]span, 0, r.c.NumCells/chunkSize+1)
		for start := 0; start < r.c.NumCells; start += chunkSize {
			r.chunks = append(r.chunks, span{lo: start, hi: min(start+chunkSize, r.c.NumCells)})
		}
	}
}

// New 创建道路
// 功能：分配NumCells+2个密度为0的元胞，并固定边界元胞的需求与供给
// 参数：c-派生常量，opts-构建选项
// 返回：处于初始状态的道路
// 说明：source的需求为Source*MaxFlow*NumLanes，sink的供给为Sink*MaxFlow*NumLanes，此后不再由密度重新计算
func New(c Constants, opts ...Option) *Road {
	r := &Road{
		c:         c,
		cells:     make([]Cell, c.NumCells+2),
		flows:     make([]float64, c.NumCells+1),
		tolerance: defaultRelativeTolerance * c.DensityLimit(),
	}
	source, sink := &r.cells[0], &r.cells[len(r.cells)-1]
	source.updateCapacity(&r.c)
	source.Demand = c.Source * source.Capacity
	sink.updateCapacity(&r.c)
	sink.Supply = c.Sink * sink.Capacity
	for _, opt := range opts {
		opt(r)
	}
	log.Debugf(
		"road: %d cells of %.4f km, max flow %.2f veh/h/lane, critical density %.2f veh/km, %d iterations",
		c.NumCells, c.CellLength, c.MaxFlow, c.CriticalDensity, c.Iterations,
	)
	return r
}

// NewFromParams 由参数表直接创建道路
func NewFromParams(params map[string]float64, opts ...Option) (*Road, error) {
	cfg, err := NewConfig(params)
	if err != nil {
		return nil, err
	}
	c, err := Derive(cfg)
	if err != nil {
		return nil, err
	}
	return New(c, opts...), nil
}

// Update 推进一个时间步
// 功能：执行一步CTM密度更新（需在施加瓶颈之后调用）
// 返回：任一内部元胞密度超出[0, DensityMax*NumLanes]（超出容差）时返回ErrNumericDomainViolation
// 算法说明：
// 1. 对每个内部元胞依次更新通行能力、平衡流量、供给与需求
// 2. 对全部NumCells+1个边界计算流量 min(demand[i], supply[i+1])
// 3. 守恒更新 density[i] += (flow[i-1] - flow[i]) * DT / CellLength，边界元胞密度不更新
// 说明：所有需求/供给的读取都发生在密度写入之前；越界密度只报告，不截断
func (r *Road) Update() error {
	c := &r.c
	interior := r.cells[1 : len(r.cells)-1]
	if r.chunks != nil {
		parallel.GoFor(r.chunks, func(s span) {
			for i := s.lo; i < s.hi; i++ {
				interior[i].refresh(c)
			}
		})
	} else {
		for i := range interior {
			interior[i].refresh(c)
		}
	}

	for i := range r.flows {
		r.flows[i] = math.Min(r.cells[i].Demand, r.cells[i+1].Supply)
	}

	ratio := c.DT / c.CellLength
	limit := c.DensityLimit()
	var violation error
	for i := range interior {
		interior[i].Density += (r.flows[i] - r.flows[i+1]) * ratio
		if violation != nil {
			continue
		}
		if d := interior[i].Density; math.IsNaN(d) || d < -r.tolerance || d > limit+r.tolerance {
			violation = fmt.Errorf(
				"%w: cell %d density %v outside [0, %v]",
				entity.ErrNumericDomainViolation, i+1, d, limit,
			)
		}
	}
	return violation
}

// ResetBottlenecks 将所有元胞（含边界元胞）的瓶颈削减系数清零
func (r *Road) ResetBottlenecks() {
	for i := range r.cells {
		r.cells[i].Reduction = 0
	}
}

// AddBottleneck 为元胞index叠加瓶颈削减系数
// 参数：index-元胞下标，范围[0, NumCells+2)，strength-削减系数
// 返回：下标越界时返回ErrInvalidBottleneckRange
func (r *Road) AddBottleneck(index int, strength float64) error {
	if index < 0 || index >= len(r.cells) {
		return fmt.Errorf("%w: cell index %d outside [0, %d)", entity.ErrInvalidBottleneckRange, index, len(r.cells))
	}
	r.cells[index].Reduction += strength
	return nil
}

// Constants 获取派生常量
func (r *Road) Constants() Constants {
	return r.c
}

// NumCells 内部元胞数
func (r *Road) NumCells() int {
	return r.c.NumCells
}

// Iterations 迭代步数
func (r *Road) Iterations() int {
	return r.c.Iterations
}

// Cell 获取元胞index的副本，index范围[0, NumCells+2)
func (r *Road) Cell(index int) Cell {
	return r.cells[index]
}

// Densities 内部元胞密度的副本
func (r *Road) Densities() []float64 {
	return lo.Map(r.cells[1:len(r.cells)-1], func(cell Cell, _ int) float64 {
		return cell.Density
	})
}

// BoundaryFlows 上一步的边界流量副本，第0个为source流入，最后一个为流向sink
func (r *Road) BoundaryFlows() []float64 {
	return append([]float64(nil), r.flows...)
}

// TotalVehicles 道路上的车辆总数（密度积分）
func (r *Road) TotalVehicles() float64 {
	return floats.Sum(r.Densities()) * r.c.CellLength
}

// String 获取Road的字符串表示
func (r *Road) String() string {
	return fmt.Sprintf("Road %.3fkm x %d lanes (%d cells)", r.c.RoadLength, r.c.NumLanes, r.c.NumCells)
}
