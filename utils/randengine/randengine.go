// 随机数引擎，包装了golang.org/x/exp/rand，用于生成随机道路参数（性质测试、参数扫描）
package randengine

import (
	"flag"
	"log"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 功能：以seed+种子偏移量初始化随机数引擎
// 参数：seed-随机数种子
// 返回：随机数引擎指针
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Uniform 生成[lo, hi)上均匀分布的浮点数
func (e *Engine) Uniform(lo, hi float64) float64 {
	if hi < lo {
		log.Panicf("randengine: Uniform: hi %f < lo %f", hi, lo)
	}
	return lo + (hi-lo)*e.Float64()
}

// IntRange 生成[lo, hi]上均匀分布的整数
func (e *Engine) IntRange(lo, hi int) int {
	if hi < lo {
		log.Panicf("randengine: IntRange: hi %d < lo %d", hi, lo)
	}
	return lo + e.Intn(hi-lo+1)
}
