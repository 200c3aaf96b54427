package task

import (
	"errors"
	"fmt"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/clock"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity/bottleneck"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity/road"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/input"
)

// ErrAlreadyRun 同一个Context只能运行一次
var ErrAlreadyRun = errors.New("simulation already run")

// State 模拟任务状态
type State int32

const (
	Initialized State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：管理时钟、道路、瓶颈调度器与输出，状态只能沿 Initialized -> Running -> Completed/Failed 推进
type Context struct {

	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool
	// 任务状态
	state atomic.Int32

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理分布式模式下与syncer的交互，为nil时为单机模式
	sidecar *syncer.Sidecar
	// sidecar close channel，未启动sidecar服务时为nil
	sidecarCloseCh chan struct{}

	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 道路
	road *road.Road
	// 瓶颈调度器
	scheduler entity.IBottleneckScheduler

	// 密度时间序列
	series *Series
	// 流式输出
	recorders []Recorder
}

// NewContext 创建新的仿真任务上下文
// 功能：初始化仿真系统的所有组件
// 参数：
//   - job: 任务名称
//   - c: 配置对象
//   - in: 输入数据（道路参数、瓶颈、信号灯）
//   - sidecar: sidecar实例，为nil时不与syncer交互
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：处于Initialized状态的Context；参数或瓶颈非法时返回错误，模拟不开始
// 算法说明：
// 1. 由参数派生模型常量并创建道路
// 2. 将瓶颈换算为模型索引，展开信号灯，统一校验后创建调度器
// 3. 创建时钟并注册RPC服务到sidecar
// 4. 启动sidecar服务（如果需要）
func NewContext(
	job string,
	c config.Config,
	in *input.Input,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) (*Context, error) {
	ctx := &Context{
		job:           job,
		sidecar:       sidecar,
		runtimeConfig: config.NewRuntimeConfig(c),
		recorders:     make([]Recorder, 0),
	}

	opts := []road.Option{
		road.WithTolerance(ctx.runtimeConfig.C.DomainTolerance),
		road.WithParallelThreshold(ctx.runtimeConfig.C.ParallelThreshold),
	}
	r, err := road.NewFromParams(in.Params, opts...)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job, err)
	}
	ctx.road = r
	constants := r.Constants()

	entries := bottleneck.Convert(in.Bottlenecks, constants.CellLength, constants.DT)
	lights, err := bottleneck.ExpandTrafficLights(in.TrafficLights, constants.CellLength, constants.DT, constants.Iterations)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job, err)
	}
	scheduler, err := bottleneck.NewScheduler(r, append(entries, lights...))
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job, err)
	}
	ctx.scheduler = scheduler

	ctx.clock = clock.New(constants.DT, int32(constants.Iterations))
	ctx.series = NewSeries(constants.NumCells)
	ctx.state.Store(int32(Initialized))

	if ctx.sidecar != nil {
		ctx.clock.Register(ctx.sidecar)
		// sidecar协程，用于提供RPC服务
		if startSidecarServe {
			ctx.sidecarCloseCh = make(chan struct{})
			go func() {
				err := ctx.sidecar.Serve()
				if err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	log.Infof("job %s: %v", job, r)
	return ctx, nil
}

// AddRecorder 添加流式输出，需在Run之前调用
func (ctx *Context) AddRecorder(r Recorder) {
	ctx.recorders = append(ctx.recorders, r)
}

func (ctx *Context) Job() string {
	return ctx.job
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Road() *road.Road {
	return ctx.road
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) State() State {
	return State(ctx.state.Load())
}

// Series 已产生的密度时间序列，失败时为截至失败前的部分结果
func (ctx *Context) Series() *Series {
	return ctx.series
}

// Close 停止模拟并关闭sidecar
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.sidecar == nil {
		return
	}
	ctx.sidecar.Close()
	if ctx.sidecarCloseCh != nil {
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
