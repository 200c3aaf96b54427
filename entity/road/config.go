package road

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
)

// 参数名，与参数文件（name=value）中的键一致
const (
	KeyFreeV          = "free_v"          // 自由流速度(km/h)
	KeyMeanTimeGap    = "mean_time_gap"   // 平均车头时距(s)
	KeyRoadLength     = "road_length"     // 道路长度(km)
	KeyDensityMax     = "density_max"     // 阻塞密度(veh/km，单车道)
	KeyNumLanes       = "num_lanes"       // 车道数
	KeySource         = "source"          // 上游注入流量占通行能力的比例
	KeySink           = "sink"            // 下游接收流量占通行能力的比例
	KeyDT             = "dt"              // 时间步长(h)
	KeySimulationTime = "simulation_time" // 模拟总时长(h)
)

// 可选参数的默认值
const (
	DefaultNumLanes       = 1.
	DefaultSource         = 0.
	DefaultSink           = 1.
	DefaultDT             = 1. / 600 // 6s
	DefaultSimulationTime = 1. / 6   // 10min
)

var (
	requiredKeys = []string{KeyFreeV, KeyMeanTimeGap, KeyRoadLength, KeyDensityMax}
	optionalKeys = map[string]float64{
		KeyNumLanes:       DefaultNumLanes,
		KeySource:         DefaultSource,
		KeySink:           DefaultSink,
		KeyDT:             DefaultDT,
		KeySimulationTime: DefaultSimulationTime,
	}
)

// Config 道路原始物理参数（RoadConfig输入项）
type Config struct {
	FreeV          float64 // 自由流速度(km/h)
	MeanTimeGap    float64 // 平均车头时距(s)
	RoadLength     float64 // 道路长度(km)
	DensityMax     float64 // 阻塞密度(veh/km)
	NumLanes       int     // 车道数
	Source         float64 // 上游边界注入比例
	Sink           float64 // 下游边界接收比例
	DT             float64 // 时间步长(h)
	SimulationTime float64 // 模拟总时长(h)
}

// NewConfig 由参数表构建道路参数
// 功能：检查必填参数、补全可选参数默认值并校验取值
// 参数：params-参数名到数值的映射
// 返回：道路参数；参数缺失、未知、非有限或越界时返回ErrInvalidConfiguration
func NewConfig(params map[string]float64) (Config, error) {
	unknown := lo.Filter(lo.Keys(params), func(k string, _ int) bool {
		_, optional := optionalKeys[k]
		return !optional && !lo.Contains(requiredKeys, k)
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Config{}, fmt.Errorf("%w: unknown parameters %v", entity.ErrInvalidConfiguration, unknown)
	}
	for _, k := range requiredKeys {
		if _, ok := params[k]; !ok {
			return Config{}, fmt.Errorf("%w: missing required parameter %q", entity.ErrInvalidConfiguration, k)
		}
	}
	get := func(k string) float64 {
		if v, ok := params[k]; ok {
			return v
		}
		return optionalKeys[k]
	}
	for k, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Config{}, fmt.Errorf("%w: parameter %q is not finite: %v", entity.ErrInvalidConfiguration, k, v)
		}
	}
	for _, k := range append([]string{KeyDT, KeySimulationTime}, requiredKeys...) {
		if v := get(k); v <= 0 {
			return Config{}, fmt.Errorf("%w: parameter %q must be positive, got %v", entity.ErrInvalidConfiguration, k, v)
		}
	}
	lanes := get(KeyNumLanes)
	if lanes < 1 || lanes != math.Trunc(lanes) {
		return Config{}, fmt.Errorf("%w: %q must be an integer >= 1, got %v", entity.ErrInvalidConfiguration, KeyNumLanes, lanes)
	}
	for _, k := range []string{KeySource, KeySink} {
		if v := get(k); v < 0 || v > 1 {
			return Config{}, fmt.Errorf("%w: %q must be a fraction in [0, 1], got %v", entity.ErrInvalidConfiguration, k, v)
		}
	}
	return Config{
		FreeV:          get(KeyFreeV),
		MeanTimeGap:    get(KeyMeanTimeGap),
		RoadLength:     get(KeyRoadLength),
		DensityMax:     get(KeyDensityMax),
		NumLanes:       int(lanes),
		Source:         get(KeySource),
		Sink:           get(KeySink),
		DT:             get(KeyDT),
		SimulationTime: get(KeySimulationTime),
	}, nil
}

// Constants 道路派生常量，构建后只读，由Road持有并显式传入每个元胞操作
type Constants struct {
	Config

	CongV           float64 // 拥堵波速(km/h)，严格为负
	CellLength      float64 // 元胞长度(km)，CellLength = FreeV * DT
	NumCells        int     // 内部元胞数
	MaxFlow         float64 // 单车道最大流量(veh/h)
	CriticalDensity float64 // 临界密度(veh/km)
	Iterations      int     // 迭代步数
}

// Derive 计算派生常量
// 功能：根据原始参数计算拥堵波速、元胞长度、元胞数、最大流量、临界密度与迭代步数
// 参数：cfg-道路原始参数
// 返回：派生常量；网格退化或不变量不成立时返回ErrInvalidConfiguration
// 说明：元胞长度由时间步长推出，使FreeV*DT/CellLength恒为1（CFL稳定边界）
func Derive(cfg Config) (Constants, error) {
	c := Constants{Config: cfg}
	c.CongV = -3600 / (cfg.DensityMax * cfg.MeanTimeGap)
	c.CellLength = cfg.FreeV * cfg.DT
	c.MaxFlow = cfg.DensityMax * cfg.FreeV * c.CongV / (c.CongV - cfg.FreeV)
	c.CriticalDensity = c.MaxFlow / cfg.FreeV

	for name, v := range map[string]float64{
		"congested wave speed": c.CongV,
		"cell length":          c.CellLength,
		"max flow":             c.MaxFlow,
		"critical density":     c.CriticalDensity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Constants{}, fmt.Errorf("%w: derived %s is not finite", entity.ErrInvalidConfiguration, name)
		}
	}
	if c.CellLength >= cfg.RoadLength {
		return Constants{}, fmt.Errorf(
			"%w: cell length %v km (free_v*dt) must be shorter than road length %v km",
			entity.ErrInvalidConfiguration, c.CellLength, cfg.RoadLength,
		)
	}
	if c.CongV >= 0 {
		return Constants{}, fmt.Errorf("%w: congested wave speed %v must be negative", entity.ErrInvalidConfiguration, c.CongV)
	}
	if c.MaxFlow <= 0 || c.CriticalDensity <= 0 || c.CriticalDensity >= cfg.DensityMax {
		return Constants{}, fmt.Errorf(
			"%w: critical density %v must lie in (0, %v)",
			entity.ErrInvalidConfiguration, c.CriticalDensity, cfg.DensityMax,
		)
	}
	c.NumCells = int(math.Round(cfg.RoadLength / c.CellLength))
	c.Iterations = int(math.Round(cfg.SimulationTime / cfg.DT))
	if c.Iterations < 1 {
		return Constants{}, fmt.Errorf(
			"%w: simulation time %v h is shorter than one time step %v h",
			entity.ErrInvalidConfiguration, cfg.SimulationTime, cfg.DT,
		)
	}
	// 时钟以int32计步
	if c.Iterations > math.MaxInt32 {
		return Constants{}, fmt.Errorf(
			"%w: %d iterations exceed the step limit %d",
			entity.ErrInvalidConfiguration, c.Iterations, math.MaxInt32,
		)
	}
	if -c.CongV > cfg.FreeV {
		log.Warnf(
			"congested wave speed |%.2f| exceeds free flow speed %.2f, densities may leave [0, %v]",
			c.CongV, cfg.FreeV, cfg.DensityMax,
		)
	}
	return c, nil
}

// DensityLimit 全部车道的阻塞密度
func (c *Constants) DensityLimit() float64 {
	return c.DensityMax * float64(c.NumLanes)
}
