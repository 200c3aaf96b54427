package road_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity/road"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/randengine"
)

// randomConfigs 在性质测试的参数空间内随机生成道路参数
// free_v∈[1,200]，density_max∈[1,300]，mean_time_gap∈[0.01,5]，road_length∈[1,100]，迭代步数∈[1,200]
func randomConfigs(t *testing.T, seed uint64, n int) []road.Config {
	t.Helper()
	e := randengine.New(seed)
	res := make([]road.Config, 0, n)
	for range n {
		dt := road.DefaultDT
		iterations := e.IntRange(1, 200)
		cfg, err := road.NewConfig(map[string]float64{
			road.KeyFreeV:          e.Uniform(1, 200),
			road.KeyDensityMax:     e.Uniform(1, 300),
			road.KeyMeanTimeGap:    e.Uniform(0.01, 5),
			road.KeyRoadLength:     e.Uniform(1, 100),
			road.KeySource:         e.Uniform(0, 1),
			road.KeyDT:             dt,
			road.KeySimulationTime: float64(iterations) * dt,
		})
		require.NoError(t, err)
		res = append(res, cfg)
	}
	return res
}
