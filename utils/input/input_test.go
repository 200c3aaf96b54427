package input_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/entity"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/ctm-sim-oss/utils/input"
)

func TestReadParams(t *testing.T) {
	params, err := input.ReadParams(strings.NewReader(`
# comment
variable=value
free_v = 50
mean_time_gap=0.6

dt=
road_length=3e0
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"free_v":        50,
		"mean_time_gap": 0.6,
		"road_length":   3,
	}, params)
}

func TestReadParamsRejects(t *testing.T) {
	for name, data := range map[string]string{
		"duplicated":  "free_v=50\nfree_v=60\n",
		"non numeric": "free_v=50\nsource=high\n",
		"no equals":   "free_v=50\nsink\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := input.ReadParams(strings.NewReader(data))
			assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
		})
	}
}

func TestReadBottlenecks(t *testing.T) {
	bns, err := input.ReadBottlenecks(strings.NewReader(`# closures
strength,start,end,time_i,time_f
1,0.8,0.8,0,3

0.25, 1, 1.5, 2, 4
`))
	require.NoError(t, err)
	assert.Equal(t, []config.Bottleneck{
		{Start: 0.8, End: 0.8, TimeI: 0, TimeF: 3, Strength: 1},
		{Start: 1, End: 1.5, TimeI: 2, TimeF: 4, Strength: 0.25},
	}, bns)
}

func TestReadBottlenecksEmptyTable(t *testing.T) {
	bns, err := input.ReadBottlenecks(strings.NewReader("start,end,time_i,time_f,strength\n"))
	require.NoError(t, err)
	assert.Empty(t, bns)
}

func TestReadBottlenecksRejects(t *testing.T) {
	for name, data := range map[string]string{
		"no header":   "1,2,3,4,5\n",
		"bad number":  "start,end,time_i,time_f,strength\n1,2,x,4,1\n",
		"short row":   "start,end,time_i,time_f,strength\n1,2,3\n",
		"missing col": "start,end,time_i,strength\n1,2,3,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := input.ReadBottlenecks(strings.NewReader(data))
			assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
		})
	}
}

func TestInit(t *testing.T) {
	c := config.Config{
		Input: config.Input{
			Params:      &config.InputPath{File: "config.csv"},
			Bottlenecks: &config.InputPath{File: "bottlenecks.csv"},
		},
		Road:          map[string]float64{"source": 0.5, "dt": 1. / 3600},
		Bottlenecks:   []config.Bottleneck{{Start: 2, End: 2, TimeI: 1, TimeF: 2, Strength: 1}},
		TrafficLights: []config.TrafficLight{{Position: 1, Red: 1, Green: 1}},
	}
	in, err := input.Init(c, "testdata")
	require.NoError(t, err)

	assert.Equal(t, 50., in.Params["free_v"])
	assert.Equal(t, 0.5, in.Params["source"])
	assert.Equal(t, 1./3600, in.Params["dt"])
	assert.Len(t, in.Params, 7)

	require.Len(t, in.Bottlenecks, 3)
	assert.Equal(t, config.Bottleneck{Start: 0.8, End: 0.8, TimeI: 0, TimeF: 3, Strength: 1}, in.Bottlenecks[0])
	assert.Equal(t, 0.5, in.Bottlenecks[1].Strength)
	assert.Equal(t, c.Bottlenecks[0], in.Bottlenecks[2])
	assert.Equal(t, c.TrafficLights, in.TrafficLights)
	assert.Equal(t, []string{"testdata/config.csv", "testdata/bottlenecks.csv"}, in.Files)
}

func TestInitInlineOnly(t *testing.T) {
	in, err := input.Init(config.Config{Road: map[string]float64{"free_v": 80}}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"free_v": 80}, in.Params)
	assert.Empty(t, in.Bottlenecks)
	assert.Empty(t, in.Files)
}

func TestInitErrors(t *testing.T) {
	_, err := input.Init(config.Config{Input: config.Input{Params: &config.InputPath{File: "missing.csv"}}}, "testdata")
	assert.Error(t, err)
	_, err = input.Init(config.Config{Input: config.Input{Params: &config.InputPath{DB: "ctm", Col: "params"}}}, "")
	assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
}
