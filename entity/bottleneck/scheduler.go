package bottleneck

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
)

// Scheduler 瓶颈调度器
// 功能：每步开始时清零所有元胞的削减系数，再按时间窗口施加生效的瓶颈
// 说明：瓶颈表在构建时一次性校验，运行期间只读
type Scheduler struct {
	road    entity.IRoad
	entries []Entry
}

// NewScheduler 创建瓶颈调度器
// 功能：校验全部瓶颈并创建调度器
// 参数：road-道路，entries-瓶颈列表
// 返回：调度器；任一瓶颈越界时返回ErrInvalidBottleneckRange，整次运行不开始
func NewScheduler(road entity.IRoad, entries []Entry) (*Scheduler, error) {
	for i, e := range entries {
		if err := e.validate(road.NumCells(), road.Iterations()); err != nil {
			return nil, fmt.Errorf("bottleneck #%d: %w", i, err)
		}
	}
	log.Infof("%d bottlenecks scheduled", len(entries))
	return &Scheduler{
		road:    road,
		entries: append([]Entry(nil), entries...),
	}, nil
}

// Apply 施加第step步的瓶颈
// 算法说明：
// 1. 将所有元胞的削减系数清零
// 2. 对每个满足TimeStart <= step < TimeEnd的瓶颈，在其元胞区间内叠加削减系数
// 说明：重叠的瓶颈在同一元胞上相加，超过1的部分在计算通行能力时按完全封闭处理
func (s *Scheduler) Apply(step int) {
	s.road.ResetBottlenecks()
	for _, e := range s.Active(step) {
		first, last := e.Cells()
		for i := first; i < last; i++ {
			if err := s.road.AddBottleneck(i, e.Strength); err != nil {
				log.Panicf("step %d: %v", step, err)
			}
		}
	}
}

// Active 第step步生效的瓶颈
func (s *Scheduler) Active(step int) []Entry {
	return lo.Filter(s.entries, func(e Entry, _ int) bool {
		return e.ActiveAt(step)
	})
}

// Entries 全部瓶颈的副本
func (s *Scheduler) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}
