package clock

import (
	"fmt"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
)

// Clock 仿真时钟管理器
// 功能：管理仿真系统的时间推进
// 说明：时间单位为小时，与道路模型的DT一致；T由步数直接换算，不累加误差
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每个模拟步时间间隔（小时）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	T            float64 // 当前时间（小时）
	InternalStep int32   // 当前步数
}

// New 创建新的时钟实例
// 参数：dt-时间步长（小时），iterations-迭代步数
// 返回：初始化完成的时钟实例
func New(dt float64, iterations int32) *Clock {
	c := &Clock{
		DT:         dt,
		START_STEP: 0,
		END_STEP:   iterations,
	}
	c.Init()
	return c
}

// Init 重置时钟到起始步
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
}

// Advance 推进一步
func (c *Clock) Advance() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Done 是否已到达结束步
func (c *Clock) Done() bool {
	return c.InternalStep >= c.END_STEP
}

// Seconds 当前时间（秒）
func (c *Clock) Seconds() float64 {
	return c.T * 3600
}

// Minutes 当前时间（分钟）
func (c *Clock) Minutes() float64 {
	return c.T * 60
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串
// 返回：格式化的时间字符串（HH:MM:SS）
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
// 说明：时间由步数换算，浮点误差可能使整秒时刻略小于整数，这里按1e-6秒取整
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.Seconds() + 1e-6
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60) - 1e-6
	if second < 0 {
		second = 0
	}
	return hour, minute, second
}
