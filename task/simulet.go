package task

import (
	"flag"
	"fmt"
)

const (
	SelfName = "ctm" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：在每个仿真步骤开始时进行准备工作
// 算法说明：
// 1. 心跳日志：定期输出模拟时间与道路车辆数
// 2. 瓶颈调度：清零削减系数并施加当前步生效的瓶颈
func (ctx *Context) prepare() {
	step := ctx.clock.InternalStep
	if interval := int32(*heartBeatInterval); interval > 0 && step%interval == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) vehicles: %.2f",
			step,
			hour, minute, second,
			ctx.road.TotalVehicles(),
		)
	}
	ctx.scheduler.Apply(int(step))
}

// update 更新阶段，每步执行一次
// 功能：推进道路密度，推进时钟并记录快照
// 返回：密度越界或输出失败时返回错误
func (ctx *Context) update() error {
	step := ctx.clock.InternalStep
	if err := ctx.road.Update(); err != nil {
		return fmt.Errorf("step %d: %w", step, err)
	}
	ctx.clock.Advance()
	return ctx.record()
}

// record 记录当前时刻的快照
func (ctx *Context) record() error {
	density := ctx.road.Densities()
	ctx.series.Append(density)
	for _, r := range ctx.recorders {
		if err := r.Record(int(ctx.clock.InternalStep), ctx.clock.T, density); err != nil {
			return fmt.Errorf("step %d: record: %w", ctx.clock.InternalStep, err)
		}
	}
	return nil
}

// Run 运行
// 功能：执行全部迭代步，返回密度时间序列
// 返回：结果；密度越界、输出失败或被提前终止时返回错误，状态置为Failed
// 说明：每个Context只能运行一次，再次调用返回ErrAlreadyRun
func (ctx *Context) Run() (*Result, error) {
	if !ctx.state.CompareAndSwap(int32(Initialized), int32(Running)) {
		return nil, fmt.Errorf("%w: job %s is %v", ErrAlreadyRun, ctx.job, ctx.State())
	}
	defer ctx.Close()

	ctx.clock.Init()
	if err := ctx.record(); err != nil {
		return nil, ctx.fail(err)
	}
	// init syncer
	if ctx.sidecar != nil {
		ctx.sidecar.Step(false)
	}
	for !ctx.clock.Done() {
		ctx.prepare()
		if ctx.sidecar != nil {
			// 通知准备阶段完成
			log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
			ctx.sidecar.NotifyStepReady()
		}
		if err := ctx.update(); err != nil {
			return nil, ctx.fail(err)
		}
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		close := false
		if ctx.sidecar != nil {
			close = ctx.sidecar.Step(ctx.clock.Done())
		}
		if ctx.clock.Done() {
			break
		}
		if close || ctx.closed.Load() {
			return nil, ctx.fail(fmt.Errorf("stopped at step %d of %d", ctx.clock.InternalStep, ctx.clock.END_STEP))
		}
	}
	ctx.state.Store(int32(Completed))
	log.Infof("engine complete")
	return &Result{
		Series:    ctx.series,
		Constants: ctx.road.Constants(),
	}, nil
}

func (ctx *Context) fail(err error) error {
	ctx.state.Store(int32(Failed))
	log.Errorf("job %s failed: %v", ctx.job, err)
	return fmt.Errorf("job %s: %w", ctx.job, err)
}
