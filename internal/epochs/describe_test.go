package epochs

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/source"
)

func TestDescribe(t *testing.T) {
	dl := NewDropLog(5)
	dl.Drop(0, ReasonIgnored)
	dl.Drop(4, "B1")

	data := make([][][]float64, 3)
	for e := range data {
		data[e] = [][]float64{make([]float64, 5), make([]float64, 5)}
	}

	st, err := NewFromData(DataConfig{
		Info: source.Info{
			SFreq: 100,
			Channels: []source.Channel{
				{Name: "A1", Type: source.TypeEEG, Cal: 1},
				{Name: "B1", Type: source.TypeEEG, Cal: 1},
			},
		},
		Data: data,
		Events: []events.Event{
			{Sample: 100, Code: 1},
			{Sample: 200, Code: 2},
			{Sample: 300, Code: 1},
		},
		IDs:             events.IDMap{"auditory": 1, "visual": 2},
		TMin:            -0.02,
		Baseline:        &Baseline{BMin: -0.02, BMax: 0},
		BaselineApplied: true,
		Selection:       []int{1, 2, 3},
		DropLog:         dl,
	})
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "describe", []byte(st.Describe()))
}
