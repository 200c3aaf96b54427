package task_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/task"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/input"
)

func scenarioInput(bottlenecks ...config.Bottleneck) *input.Input {
	return &input.Input{
		Params: map[string]float64{
			"free_v":        50,
			"mean_time_gap": 0.6,
			"road_length":   3,
			"density_max":   120,
			"source":        0.8,
			"sink":          1,
		},
		Bottlenecks: bottlenecks,
	}
}

var closure = config.Bottleneck{Start: 0.8, End: 0.8, TimeI: 0, TimeF: 3, Strength: 1}

func run(t *testing.T, in *input.Input) (*task.Context, *task.Result) {
	t.Helper()
	ctx, err := task.NewContext("test", config.Config{}, in, nil, false)
	require.NoError(t, err)
	assert.Equal(t, task.Initialized, ctx.State())
	res, err := ctx.Run()
	require.NoError(t, err)
	assert.Equal(t, task.Completed, ctx.State())
	return ctx, res
}

func TestRunScenario(t *testing.T) {
	_, res := run(t, scenarioInput(closure))

	require.Equal(t, 101, res.Series.Len())
	assert.Equal(t, 36, res.Series.NumCells())
	for step, row := range res.Series.Rows() {
		require.Len(t, row, 36)
		for i, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "step %d cell %d", step, i)
			require.GreaterOrEqual(t, v, 0., "step %d cell %d", step, i)
			require.LessOrEqual(t, v, 120., "step %d cell %d", step, i)
		}
	}
	assert.Equal(t, make([]float64, 36), res.Series.Row(0))

	// 封闭元胞上游的元胞在封闭期间只进不出
	for step := 1; step <= 30; step++ {
		assert.GreaterOrEqual(t, res.Series.At(step, 8), res.Series.At(step-1, 8), "step %d", step)
		assert.Equal(t, 0., res.Series.At(step, 9), "step %d", step)
		assert.Equal(t, 0., res.Series.At(step, 20), "step %d", step)
	}
	assert.Greater(t, res.Series.At(30, 8), 48.)

	assert.Len(t, res.Positions(), 36)
	assert.InDelta(t, 0.5*res.Constants.CellLength, res.Positions()[0], 1e-12)
	times := res.Times()
	require.Len(t, times, 101)
	assert.InDelta(t, 10., times[100], 1e-9)
}

func TestRunWithoutBottleneckReachesDownstream(t *testing.T) {
	_, res := run(t, scenarioInput())
	assert.InDelta(t, 48., res.Series.At(30, 20), 1e-9)
	assert.InDelta(t, 48., res.Series.At(100, 35), 1e-9)

	// 自由流以每步一个元胞的速度传播，36步后整条道路为均匀密度
	want := make([]float64, 36)
	for i := range want {
		want[i] = 48
	}
	for _, step := range []int{36, 100} {
		if diff := cmp.Diff(want, res.Series.Row(step), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("step %d density mismatch (-want +got):\n%s", step, diff)
		}
	}
}

func TestRunTwice(t *testing.T) {
	ctx, _ := run(t, scenarioInput())
	_, err := ctx.Run()
	assert.ErrorIs(t, err, task.ErrAlreadyRun)
	assert.Equal(t, task.Completed, ctx.State())
}

func TestNewContextRejectsInvalidInput(t *testing.T) {
	_, err := task.NewContext("test", config.Config{}, scenarioInput(config.Bottleneck{
		Start: 100, End: 100, TimeI: 0, TimeF: 1, Strength: 1,
	}), nil, false)
	assert.ErrorIs(t, err, entity.ErrInvalidBottleneckRange)

	in := scenarioInput()
	in.TrafficLights = []config.TrafficLight{{Position: 1, Red: 0, Green: 1}}
	_, err = task.NewContext("test", config.Config{}, in, nil, false)
	assert.ErrorIs(t, err, entity.ErrInvalidBottleneckRange)

	in = scenarioInput()
	delete(in.Params, "free_v")
	_, err = task.NewContext("test", config.Config{}, in, nil, false)
	assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
}

func TestRunTrafficLight(t *testing.T) {
	_, free := run(t, scenarioInput())
	in := scenarioInput()
	// 元胞12处的信号灯：第10步起红灯20步，随后绿灯20步
	in.TrafficLights = []config.TrafficLight{{Position: 1, Red: 2, Green: 2, Offset: 1}}
	_, res := run(t, in)

	for step := 14; step <= 30; step++ {
		// 红灯期间上游元胞（下标10）积累车辆，信号灯所在元胞（下标11）保持为空
		assert.Greater(t, res.Series.At(step, 10), 48., "step %d", step)
		assert.InDelta(t, 48., free.Series.At(step, 10), 1e-9, "step %d", step)
		assert.Equal(t, 0., res.Series.At(step, 11), "step %d", step)
	}
	// 绿灯后信号灯所在元胞开始放行
	assert.Positive(t, res.Series.At(31, 11))
	assert.Positive(t, res.Series.At(40, 11))
	assert.Positive(t, res.Series.At(45, 20))
}

func TestRunDomainViolation(t *testing.T) {
	in := scenarioInput(config.Bottleneck{Start: 0.8, End: 0.8, TimeI: 0, TimeF: 10, Strength: 1})
	in.Params["mean_time_gap"] = 0.06
	in.Params["source"] = 1
	ctx, err := task.NewContext("test", config.Config{}, in, nil, false)
	require.NoError(t, err)
	_, err = ctx.Run()
	assert.ErrorIs(t, err, entity.ErrNumericDomainViolation)
	assert.Equal(t, task.Failed, ctx.State())
	assert.Less(t, ctx.Series().Len(), 101)
	assert.Positive(t, ctx.Series().Len())
}

type memRecorder struct {
	steps  []int
	times  []float64
	last   []float64
	fail   bool
	closed bool
}

func (m *memRecorder) Record(step int, t float64, density []float64) error {
	if m.fail && step == 5 {
		return errors.New("disk full")
	}
	m.steps = append(m.steps, step)
	m.times = append(m.times, t)
	m.last = density
	return nil
}

func (m *memRecorder) Close() error {
	m.closed = true
	return nil
}

func TestRecorder(t *testing.T) {
	ctx, err := task.NewContext("test", config.Config{}, scenarioInput(closure), nil, false)
	require.NoError(t, err)
	rec := &memRecorder{}
	ctx.AddRecorder(rec)
	res, err := ctx.Run()
	require.NoError(t, err)
	require.Len(t, rec.steps, 101)
	assert.Equal(t, 0, rec.steps[0])
	assert.Equal(t, 100, rec.steps[100])
	assert.InDelta(t, 1./6, rec.times[100], 1e-12)
	assert.Equal(t, res.Series.Row(100), rec.last)
}

func TestRecorderFailure(t *testing.T) {
	ctx, err := task.NewContext("test", config.Config{}, scenarioInput(), nil, false)
	require.NoError(t, err)
	ctx.AddRecorder(&memRecorder{fail: true})
	_, err = ctx.Run()
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, task.Failed, ctx.State())
	assert.Equal(t, 6, ctx.Series().Len())
}

func TestSeriesCopies(t *testing.T) {
	s := task.NewSeries(2)
	row := []float64{1, 2}
	s.Append(row)
	row[0] = 9
	assert.Equal(t, 1., s.At(0, 0))
	rows := s.Rows()
	rows[0][1] = 9
	assert.Equal(t, 2., s.At(0, 1))
	assert.Panics(t, func() { s.Append([]float64{1}) })
}
