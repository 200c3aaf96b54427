package road

import "math"

// Cell 元胞
// 功能：一段定长道路的密度及其派生量
// 说明：元胞只保存自身可变状态，道路常量由Road显式传入
type Cell struct {
	Density   float64 // 全部车道的总密度(veh/km)
	Flow      float64 // 当前密度下的平衡流量(veh/h)
	Reduction float64 // 当前步叠加的瓶颈削减系数
	Capacity  float64 // 通行能力(veh/h)
	Supply    float64 // 可接收的上游流量(veh/h)
	Demand    float64 // 可发送给下游的流量(veh/h)
}

// laneDensity 车道平均密度
func (cell *Cell) laneDensity(c *Constants) float64 {
	return cell.Density / float64(c.NumLanes)
}

// updateCapacity 更新通行能力
// 说明：叠加的削减系数超过1时按完全封闭处理，不产生负通行能力
func (cell *Cell) updateCapacity(c *Constants) {
	reduction := math.Min(cell.Reduction, 1)
	cell.Capacity = c.MaxFlow * float64(c.NumLanes) * (1 - reduction)
}

// flowEquilibrium 由基本图计算平衡流量（全部车道）
func (cell *Cell) flowEquilibrium(c *Constants) {
	cell.Flow = FundamentalDiagram(cell.laneDensity(c), c) * float64(c.NumLanes)
}

// updateSupply 拥堵（严格大于临界密度）时供给为平衡流量，否则为通行能力
func (cell *Cell) updateSupply(c *Constants) {
	if cell.laneDensity(c) > c.CriticalDensity {
		cell.Supply = cell.Flow
	} else {
		cell.Supply = cell.Capacity
	}
}

// updateDemand 自由流（不大于临界密度）时需求为平衡流量，否则为通行能力
func (cell *Cell) updateDemand(c *Constants) {
	if cell.laneDensity(c) <= c.CriticalDensity {
		cell.Demand = cell.Flow
	} else {
		cell.Demand = cell.Capacity
	}
}

// refresh 按 通行能力→平衡流量→供给→需求 的顺序执行一次元胞更新
func (cell *Cell) refresh(c *Constants) {
	cell.updateCapacity(c)
	cell.flowEquilibrium(c)
	cell.updateSupply(c)
	cell.updateDemand(c)
}
