package entity

// 依赖倒置

// entity/road/road.go的依赖倒置，供瓶颈调度器使用
type IRoad interface {
	NumCells() int   // 内部元胞数（不含source/sink）
	Iterations() int // 总迭代步数

	ResetBottlenecks()                                // 将所有元胞的瓶颈削减系数清零
	AddBottleneck(index int, strength float64) error // 为元胞index叠加瓶颈削减系数，index∈[0, NumCells+2)
}

// entity/bottleneck/scheduler.go的依赖倒置，供仿真驱动使用
type IBottleneckScheduler interface {
	Apply(step int) // 按当前步重置并施加瓶颈
}
