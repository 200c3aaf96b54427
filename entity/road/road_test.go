package road_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity/road"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/randengine"
)

const eps = 1e-9

func newScenarioRoad(t *testing.T, mutate func(p map[string]float64), opts ...road.Option) *road.Road {
	t.Helper()
	p := scenarioParams()
	if mutate != nil {
		mutate(p)
	}
	r, err := road.NewFromParams(p, opts...)
	require.NoError(t, err)
	return r
}

func assertBounded(t *testing.T, r *road.Road) {
	t.Helper()
	c := r.Constants()
	limit := c.DensityLimit()
	maxFlow := c.MaxFlow * float64(c.NumLanes)
	for i := 1; i <= r.NumCells(); i++ {
		cell := r.Cell(i)
		require.GreaterOrEqual(t, cell.Density, -eps*limit, "cell %d", i)
		require.LessOrEqual(t, cell.Density, limit*(1+eps), "cell %d", i)
		require.GreaterOrEqual(t, cell.Flow, 0., "cell %d", i)
		require.LessOrEqual(t, cell.Flow, maxFlow*(1+eps), "cell %d", i)
	}
}

func TestNewRoadCells(t *testing.T) {
	r := newScenarioRoad(t, nil)
	c := r.Constants()
	assert.Equal(t, 36, r.NumCells())
	assert.Len(t, r.Densities(), r.NumCells())
	assert.Equal(t, make([]float64, r.NumCells()), r.Densities())

	source, sink := r.Cell(0), r.Cell(r.NumCells()+1)
	assert.InDelta(t, 0.8*c.MaxFlow, source.Demand, eps)
	assert.InDelta(t, c.MaxFlow, sink.Supply, eps)
	assert.LessOrEqual(t, source.Demand/c.MaxFlow, 1.)
	assert.LessOrEqual(t, sink.Supply/c.MaxFlow, 1.)
}

func TestUpdateDensityBounded(t *testing.T) {
	for maxIter := 1; maxIter < 100; maxIter += 10 {
		r := newScenarioRoad(t, nil)
		for range maxIter {
			require.NoError(t, r.Update())
		}
		assertBounded(t, r)
	}
}

func TestFreeFlowTransportsSourceDensity(t *testing.T) {
	r := newScenarioRoad(t, nil)
	c := r.Constants()
	inflowDensity := 0.8 * c.MaxFlow / c.FreeV
	for range r.NumCells() + 5 {
		require.NoError(t, r.Update())
	}
	for i, d := range r.Densities() {
		assert.InDelta(t, inflowDensity, d, 1e-6, "cell %d", i+1)
	}
}

func TestUpdateConservesVehicles(t *testing.T) {
	r := newScenarioRoad(t, func(p map[string]float64) { p[road.KeySink] = 0.4 })
	c := r.Constants()
	ratio := c.DT / c.CellLength
	for step := range c.Iterations {
		before := lo.Sum(r.Densities())
		require.NoError(t, r.Update())
		flows := r.BoundaryFlows()
		require.Len(t, flows, r.NumCells()+1)
		inflow, outflow := flows[0], flows[len(flows)-1]
		after := lo.Sum(r.Densities())
		assert.InDelta(t, before+(inflow-outflow)*ratio, after, 1e-8, "step %d", step)
	}
	// 下游接收能力不足，道路上积累车辆
	assert.Greater(t, r.TotalVehicles(), 0.)
	assertBounded(t, r)
}

func TestBoundaryCellsAreForcingTerms(t *testing.T) {
	r := newScenarioRoad(t, nil)
	source, sink := r.Cell(0), r.Cell(r.NumCells()+1)
	for range 50 {
		require.NoError(t, r.Update())
	}
	assert.Equal(t, 0., r.Cell(0).Density)
	assert.Equal(t, 0., r.Cell(r.NumCells()+1).Density)
	assert.Equal(t, source.Demand, r.Cell(0).Demand)
	assert.Equal(t, sink.Supply, r.Cell(r.NumCells()+1).Supply)
}

func TestBoundednessRandomConfigs(t *testing.T) {
	e := randengine.New(11)
	for _, cfg := range randomConfigs(t, 11, 25) {
		c, err := road.Derive(cfg)
		require.NoError(t, err)
		r := road.New(c)
		steps := e.IntRange(1, c.Iterations)
		for range steps {
			require.NoError(t, r.Update(), "config %+v", cfg)
		}
		assertBounded(t, r)
	}
}

func TestBoundednessWithCongestion(t *testing.T) {
	e := randengine.New(12)
	tested := 0
	for tested < 20 {
		cfg := randomConfigs(t, uint64(100+tested)+e.Uint64()%1000, 1)[0]
		c, err := road.Derive(cfg)
		require.NoError(t, err)
		if -c.CongV > c.FreeV || c.NumCells > 2000 {
			continue
		}
		c.Sink = e.Uniform(0, 1)
		r := road.New(c)
		for range c.Iterations {
			r.ResetBottlenecks()
			require.NoError(t, r.AddBottleneck(e.IntRange(0, r.NumCells()+1), e.Uniform(0, 1)))
			require.NoError(t, r.Update(), "config %+v", c)
		}
		assertBounded(t, r)
		tested++
	}
}

func TestParallelUpdateMatchesSerial(t *testing.T) {
	mutate := func(p map[string]float64) {
		p[road.KeyRoadLength] = 250
		p[road.KeySink] = 0.3
	}
	serial := newScenarioRoad(t, mutate)
	par := newScenarioRoad(t, mutate, road.WithParallelThreshold(1))
	require.Greater(t, serial.NumCells(), 2048)
	for step := range 200 {
		serial.ResetBottlenecks()
		par.ResetBottlenecks()
		if step < 100 {
			require.NoError(t, serial.AddBottleneck(1500, 0.7))
			require.NoError(t, par.AddBottleneck(1500, 0.7))
		}
		require.NoError(t, serial.Update())
		require.NoError(t, par.Update())
	}
	assert.Equal(t, serial.Densities(), par.Densities())
	assert.Equal(t, serial.BoundaryFlows(), par.BoundaryFlows())
}

func TestUpdateReportsDomainViolation(t *testing.T) {
	// 拥堵波速远大于自由流速度时，全封闭瓶颈上游的密度会越过阻塞密度
	r := newScenarioRoad(t, func(p map[string]float64) {
		p[road.KeyMeanTimeGap] = 0.06
		p[road.KeySource] = 1
	})
	require.NoError(t, r.AddBottleneck(10, 1))
	var err error
	for range r.Iterations() {
		if err = r.Update(); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, entity.ErrNumericDomainViolation)
}

func TestAddBottleneckRange(t *testing.T) {
	r := newScenarioRoad(t, nil)
	assert.NoError(t, r.AddBottleneck(0, 0.5))
	assert.NoError(t, r.AddBottleneck(r.NumCells()+1, 0.5))
	assert.ErrorIs(t, r.AddBottleneck(-1, 0.5), entity.ErrInvalidBottleneckRange)
	assert.ErrorIs(t, r.AddBottleneck(r.NumCells()+2, 0.5), entity.ErrInvalidBottleneckRange)

	require.NoError(t, r.AddBottleneck(5, 0.25))
	require.NoError(t, r.AddBottleneck(5, 0.5))
	assert.Equal(t, 0.75, r.Cell(5).Reduction)
	r.ResetBottlenecks()
	assert.Equal(t, 0., r.Cell(5).Reduction)
}
