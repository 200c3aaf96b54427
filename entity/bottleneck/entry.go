package bottleneck

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
)

// Entry 瓶颈（模型索引）
// 功能：在元胞区间[SpatialStart, SpatialEnd)、迭代区间[TimeStart, TimeEnd)内削减通行能力
// 说明：SpatialStart == SpatialEnd 表示只作用于元胞SpatialStart的点状障碍（如信号灯）
type Entry struct {
	SpatialStart int     // 起始元胞下标（含source，范围[0, NumCells+2)）
	SpatialEnd   int     // 结束元胞下标（不含）
	TimeStart    int     // 起始迭代步
	TimeEnd      int     // 结束迭代步（不含）
	Strength     float64 // 削减系数
}

// String 获取Entry的字符串表示
func (e Entry) String() string {
	return fmt.Sprintf("Bottleneck{cells [%d,%d) steps [%d,%d) strength %.2f}",
		e.SpatialStart, e.SpatialEnd, e.TimeStart, e.TimeEnd, e.Strength)
}

// ActiveAt 判断第step步时瓶颈是否生效
func (e Entry) ActiveAt(step int) bool {
	return e.TimeStart <= step && step < e.TimeEnd
}

// Cells 瓶颈作用的元胞下标区间[lo, hi)
func (e Entry) Cells() (int, int) {
	if e.SpatialStart == e.SpatialEnd {
		return e.SpatialStart, e.SpatialStart + 1
	}
	return e.SpatialStart, e.SpatialEnd
}

// validate 检查索引是否位于元胞与迭代索引空间内
// 参数：numCells-内部元胞数，iterations-迭代步数
// 返回：越界时返回ErrInvalidBottleneckRange
// 说明：元胞下标范围[0, numCells+2)（含边界元胞），结束下标作为开区间端点可等于numCells+2；
// 时间窗口需满足0 <= TimeStart <= TimeEnd <= iterations
func (e Entry) validate(numCells, iterations int) error {
	cells := numCells + 2
	switch {
	case e.SpatialStart < 0 || e.SpatialStart >= cells:
		return fmt.Errorf("%w: %v: start cell outside [0, %d)", entity.ErrInvalidBottleneckRange, e, cells)
	case e.SpatialEnd < e.SpatialStart || e.SpatialEnd > cells:
		return fmt.Errorf("%w: %v: end cell outside [%d, %d]", entity.ErrInvalidBottleneckRange, e, e.SpatialStart, cells)
	case e.TimeStart < 0 || e.TimeStart > e.TimeEnd || e.TimeEnd > iterations:
		return fmt.Errorf("%w: %v: time window outside [0, %d]", entity.ErrInvalidBottleneckRange, e, iterations)
	case math.IsNaN(e.Strength) || e.Strength < 0 || e.Strength > 1:
		return fmt.Errorf("%w: %v: strength outside [0, 1]", entity.ErrInvalidBottleneckRange, e)
	}
	return nil
}

// Convert 将物理单位的瓶颈记录转换为模型索引
// 功能：位置(km)转换为元胞下标round(x/cellLength)，时间(min)转换为迭代步round(t/60/dt)
// 参数：raw-瓶颈原始记录，cellLength-元胞长度(km)，dt-时间步长(h)
// 返回：瓶颈列表（未校验，校验由NewScheduler完成）
func Convert(raw []config.Bottleneck, cellLength, dt float64) []Entry {
	return lo.Map(raw, func(b config.Bottleneck, _ int) Entry {
		return Entry{
			SpatialStart: positionIndex(b.Start, cellLength),
			SpatialEnd:   positionIndex(b.End, cellLength),
			TimeStart:    minuteIndex(b.TimeI, dt),
			TimeEnd:      minuteIndex(b.TimeF, dt),
			Strength:     b.Strength,
		}
	})
}

func positionIndex(x, cellLength float64) int {
	return int(math.Round(x / cellLength))
}

func minuteIndex(t, dt float64) int {
	return int(math.Round(t / 60 / dt))
}
