package bottleneck

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
)

// lightProgram 以迭代步表示的固定周期信号灯程序
type lightProgram struct {
	cell   int // 所在元胞
	offset int // 首个红灯开始步
	red    int // 红灯步数
	green  int // 绿灯步数
}

// ExpandTrafficLights 将固定周期信号灯展开为点状瓶颈
// 功能：按 红灯->绿灯 的固定程序推进相位，每个红灯相位生成一个强度为1的点状瓶颈
// 参数：lights-信号灯列表，cellLength-元胞长度(km)，dt-时间步长(h)，iterations-迭代步数
// 返回：瓶颈列表；信号灯参数非法时返回ErrInvalidBottleneckRange
// 算法说明：
// 1. 相位时长与Offset先换算为迭代步，红灯不足一步的程序非法
// 2. 首个红灯从Offset开始，此前为绿灯；此后每个周期red+green步
// 3. 红灯窗口截断到模拟时长内
func ExpandTrafficLights(lights []config.TrafficLight, cellLength, dt float64, iterations int) ([]Entry, error) {
	res := make([]Entry, 0)
	for i, tl := range lights {
		p, err := newLightProgram(tl, cellLength, dt, iterations)
		if err != nil {
			return nil, fmt.Errorf("traffic light #%d: %w", i, err)
		}
		for ti := p.offset; ti < iterations; ti += p.red + p.green {
			res = append(res, Entry{
				SpatialStart: p.cell,
				SpatialEnd:   p.cell,
				TimeStart:    ti,
				TimeEnd:      min(ti+p.red, iterations),
				Strength:     1,
			})
		}
	}
	log.Debugf("%d traffic lights expanded into %d red phases", len(lights), len(res))
	return res, nil
}

func newLightProgram(tl config.TrafficLight, cellLength, dt float64, iterations int) (lightProgram, error) {
	if math.IsNaN(tl.Position) || !(tl.Red > 0) || !(tl.Green >= 0) || !(tl.Offset >= 0) ||
		math.IsInf(tl.Red, 0) || math.IsInf(tl.Green, 0) || math.IsInf(tl.Offset, 0) {
		return lightProgram{}, fmt.Errorf("%w: need finite red > 0, green >= 0, offset >= 0, got %+v",
			entity.ErrInvalidBottleneckRange, tl)
	}
	p := lightProgram{
		cell:   positionIndex(tl.Position, cellLength),
		offset: stepsWithin(tl.Offset, dt, iterations),
		red:    stepsWithin(tl.Red, dt, iterations),
		green:  stepsWithin(tl.Green, dt, iterations),
	}
	if p.red < 1 {
		return lightProgram{}, fmt.Errorf("%w: red %v min is shorter than one step (%v min)",
			entity.ErrInvalidBottleneckRange, tl.Red, dt*60)
	}
	return p, nil
}

// stepsWithin 将时长t(min)换算为迭代步，超过limit时取limit
func stepsWithin(t, dt float64, limit int) int {
	steps := math.Round(t / 60 / dt)
	if steps > float64(limit) {
		return limit
	}
	return int(steps)
}
