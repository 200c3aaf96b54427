package road

// FundamentalDiagram 三角形基本图（单车道）
// 功能：由车道平均密度计算平衡流量
// 参数：density-单车道密度，c-道路派生常量
// 返回：单车道平衡流量
// 算法说明：
// 1. density < 0 或 density > DensityMax：流量为0
// 2. 0 <= density <= CriticalDensity：自由流分支 FreeV*density
// 3. CriticalDensity < density <= DensityMax：拥堵分支 MaxFlow*(1-CongV/FreeV) + CongV*density
// 说明：两分支在CriticalDensity处均等于MaxFlow，函数连续且在CriticalDensity处取唯一最大值
func FundamentalDiagram(density float64, c *Constants) float64 {
	switch {
	case density < 0:
		return 0
	case density <= c.CriticalDensity:
		return c.FreeV * density
	case density > c.DensityMax:
		return 0
	default:
		return c.MaxFlow*(1-c.CongV/c.FreeV) + c.CongV*density
	}
}
