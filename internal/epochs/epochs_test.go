package epochs

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/metadata"
	"github.com/neurokit/neurokit-go/internal/reject"
	"github.com/neurokit/neurokit-go/internal/source"
)

// testSource builds an in-memory recording with data[ch][i] = ch*1000+i,
// so any read window is verifiable by inspection.
func testSource(t *testing.T, nc int, nSamples int64, sfreq float64) *source.MemorySource {
	t.Helper()
	chans := make([]source.Channel, nc)
	data := make([][]float64, nc)
	for ch := 0; ch < nc; ch++ {
		chans[ch] = source.Channel{
			Name: string(rune('A'+ch)) + "1",
			Type: source.TypeEEG,
			Cal:  1,
		}
		row := make([]float64, nSamples)
		for i := range row {
			row[i] = float64(ch*1000 + i)
		}
		data[ch] = row
	}
	src, err := source.NewMemorySource(source.Info{
		SFreq:    sfreq,
		Channels: chans,
	}, data)
	require.NoError(t, err)
	return src
}

func simpleEvents(samples ...int64) []events.Event {
	evs := make([]events.Event, len(samples))
	for i, s := range samples {
		evs[i] = events.Event{Sample: s, Code: 1}
	}
	return evs
}

func TestConstructionSelectionAndDropLog(t *testing.T) {
	src := testSource(t, 2, 1000, 100)
	evs := []events.Event{
		{Sample: 50, Code: 1},
		{Sample: 100, Code: 9}, // not requested
		{Sample: 200, Code: 1},
		{Sample: 995, Code: 1}, // window runs past the recording
	}
	st, err := New(src, evs, events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, st.NEpochs())
	assert.Equal(t, []int{0, 2}, st.Selection())

	dl := st.GetDropLog()
	require.Len(t, dl, 4)
	assert.Empty(t, dl[0])
	assert.Equal(t, []string{ReasonIgnored}, dl[1])
	assert.Empty(t, dl[2])
	assert.Equal(t, []string{ReasonTooShort}, dl[3])

	// Window length is fixed by the offsets: round(0.2*100)+1.
	assert.Equal(t, 21, st.NTimes())
}

func TestConstructionValidation(t *testing.T) {
	src := testSource(t, 1, 100, 100)
	evs := simpleEvents(50)
	ids := events.IDMap{"stim": 1}

	tests := []struct {
		name string
		opts Options
	}{
		{"tmin after tmax", Options{TMin: 0.5, TMax: -0.5}},
		{"baseline inverted", Options{TMax: 0.1, Baseline: &Baseline{BMin: 0.1, BMax: 0}}},
		{"negative decim", Options{TMax: 0.1, Decim: -2}},
		{"annotation rejection without provider", Options{TMax: 0.1, RejectByAnnotation: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(src, evs, ids, tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := New(nil, evs, ids, Options{TMax: 0.1})
	assert.Error(t, err)
	_, err = New(src, evs, events.IDMap{}, Options{TMax: 0.1})
	assert.Error(t, err)
}

func TestDuplicatePoliciesAtStoreLevel(t *testing.T) {
	src := testSource(t, 1, 100, 100)
	evs := []events.Event{
		{Sample: 10, Code: 1},
		{Sample: 10, Code: 2},
	}
	ids := events.IDMap{"a": 1, "b": 2}

	_, err := New(src, evs, ids, Options{TMax: 0.05, Policy: events.DuplicateError})
	assert.Error(t, err)

	st, err := New(src, evs, ids, Options{TMax: 0.05, Policy: events.DuplicateDrop, Preload: true})
	require.NoError(t, err)
	assert.Equal(t, 1, st.NEpochs())
	dl := st.GetDropLog()
	assert.Empty(t, dl[0])
	assert.Equal(t, []string{events.ReasonDropDuplicate}, dl[1])

	st, err = New(src, evs, ids, Options{TMax: 0.05, Policy: events.DuplicateMerge, Preload: true})
	require.NoError(t, err)
	assert.Equal(t, 1, st.NEpochs())
	dl = st.GetDropLog()
	assert.Empty(t, dl[0])
	assert.Equal(t, []string{events.ReasonMergeDuplicate}, dl[1])
	merged := st.Events()[0]
	assert.NotEqual(t, int32(1), merged.Code)
	assert.NotEqual(t, int32(2), merged.Code)
	assert.Contains(t, st.EventIDs(), "a/b")
}

func TestLazyMatchesPreloaded(t *testing.T) {
	build := func(preload bool) *Store {
		src := testSource(t, 3, 500, 250)
		st, err := New(src, simpleEvents(100, 200, 300), events.IDMap{"stim": 1}, Options{
			TMin: -0.04, TMax: 0.04, Preload: preload,
		})
		require.NoError(t, err)
		return st
	}

	lazy := build(false)
	eager := build(true)
	assert.False(t, lazy.Preloaded())
	assert.True(t, eager.Preloaded())

	lazyData, err := lazy.GetData(GetDataOptions{})
	require.NoError(t, err)
	eagerData, err := eager.GetData(GetDataOptions{})
	require.NoError(t, err)
	assert.Equal(t, eagerData, lazyData)

	require.NoError(t, lazy.Load())
	assert.True(t, lazy.Preloaded())
	require.NoError(t, lazy.Load()) // idempotent
}

func TestGetDataSubsetting(t *testing.T) {
	src := testSource(t, 3, 500, 250)
	st, err := New(src, simpleEvents(100, 200, 300), events.IDMap{"stim": 1}, Options{
		TMin: -0.04, TMax: 0.04, Preload: true,
	})
	require.NoError(t, err)

	full, err := st.GetData(GetDataOptions{})
	require.NoError(t, err)
	require.Len(t, full, 3)
	require.Len(t, full[0], 3)
	require.Len(t, full[0][0], 21)

	// Anchored windows read source samples [anchor-10, anchor+10].
	assert.Equal(t, float64(90), full[0][0][0])
	assert.Equal(t, float64(1090), full[0][1][0])

	picked, err := st.GetData(GetDataOptions{Picks: []string{"B1"}, Items: []int{1}})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	require.Len(t, picked[0], 1)
	assert.Equal(t, full[1][1], picked[0][0])

	_, err = st.GetData(GetDataOptions{Picks: []string{"nope"}})
	assert.Error(t, err)
	_, err = st.GetData(GetDataOptions{Items: []int{7}})
	assert.Error(t, err)

	// copy=false on a preloaded unsubsetted read aliases the buffer.
	view, err := st.GetData(GetDataOptions{})
	require.NoError(t, err)
	view[0][0][0] = -42
	again, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, float64(-42), again[0][0][0])

	// A forced copy does not write through.
	cp, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	cp[0][0][0] = 7
	again, err = st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, float64(-42), again[0][0][0])

	// Unit scaling forces a copy and scales only the matching type.
	scaled, err := st.GetData(GetDataOptions{Units: map[source.ChannelType]float64{source.TypeEEG: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2*again[0][0][1], scaled[0][0][1])
}

func TestApplyBaselineSingleSample(t *testing.T) {
	// Two epochs of [2, 3] at 1000 Hz; baseline over the single sample
	// at t=0 subtracts 2 everywhere.
	src, err := source.NewMemorySource(source.Info{
		SFreq:    1000,
		Channels: []source.Channel{{Name: "A1", Type: source.TypeEEG, Cal: 1}},
	}, [][]float64{{2, 3, 2, 3}})
	require.NoError(t, err)

	st, err := New(src, simpleEvents(0, 2), events.IDMap{"stim": 1}, Options{
		TMin: 0, TMax: 1e-3, Preload: true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, st.NTimes())

	require.NoError(t, st.ApplyBaseline(&Baseline{BMin: 0, BMax: 0}))
	data, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	for e := 0; e < 2; e++ {
		assert.Equal(t, []float64{0, 1}, data[e][0])
	}
}

func TestBaselineRemovalAfterPreloadFails(t *testing.T) {
	src := testSource(t, 1, 200, 100)
	st, err := New(src, simpleEvents(50, 100), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Baseline: &Baseline{BMin: -0.1, BMax: 0}, Preload: true,
	})
	require.NoError(t, err)

	err = st.ApplyBaseline(nil)
	assert.Error(t, err)

	// Lazy stores may drop the baseline freely.
	st, err = New(src, simpleEvents(50, 100), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Baseline: &Baseline{BMin: -0.1, BMax: 0},
	})
	require.NoError(t, err)
	assert.NoError(t, st.ApplyBaseline(nil))
	assert.Nil(t, st.BaselineWindow())
}

func TestDecimateChainsCompose(t *testing.T) {
	// 5 epochs x 10 channels x 20 samples: one call with factor 6 must
	// equal chained factors 2 then 3 and direct stride-6 slicing.
	build := func() *Store {
		src := testSource(t, 10, 3000, 1000)
		st, err := New(src, simpleEvents(100, 600, 1100, 1600, 2100), events.IDMap{"stim": 1}, Options{
			TMin: 0, TMax: 0.019, Preload: true,
		})
		require.NoError(t, err)
		require.Equal(t, 20, st.NTimes())
		return st
	}

	direct := build()
	original, err := direct.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	require.NoError(t, direct.Decimate(6, 0))

	chained := build()
	require.NoError(t, chained.Decimate(2, 0))
	require.NoError(t, chained.Decimate(3, 0))

	directData, err := direct.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	chainedData, err := chained.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, directData, chainedData)
	assert.InDelta(t, 1000.0/6, direct.SFreq(), 1e-9)

	for e := range original {
		for ch := range original[e] {
			var sliced []float64
			for i := 0; i < len(original[e][ch]); i += 6 {
				sliced = append(sliced, original[e][ch][i])
			}
			assert.Equal(t, sliced, directData[e][ch])
		}
	}
}

func TestDecimateLazyComposesToo(t *testing.T) {
	build := func() *Store {
		src := testSource(t, 2, 3000, 1000)
		st, err := New(src, simpleEvents(100, 600), events.IDMap{"stim": 1}, Options{
			TMin: 0, TMax: 0.019,
		})
		require.NoError(t, err)
		return st
	}

	lazy := build()
	require.NoError(t, lazy.Decimate(2, 0))
	require.NoError(t, lazy.Decimate(3, 0))
	require.False(t, lazy.Preloaded())

	eager := build()
	require.NoError(t, eager.Load())
	require.NoError(t, eager.Decimate(6, 0))

	lazyData, err := lazy.GetData(GetDataOptions{})
	require.NoError(t, err)
	eagerData, err := eager.GetData(GetDataOptions{})
	require.NoError(t, err)
	assert.Equal(t, eagerData, lazyData)
}

func TestCropIdempotent(t *testing.T) {
	src := testSource(t, 2, 1000, 100)
	st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
		TMin: -0.5, TMax: 0.5, Preload: true,
	})
	require.NoError(t, err)

	require.NoError(t, st.Crop(-0.2, 0.2))
	once, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	onceTimes := st.Times()

	require.NoError(t, st.Crop(-0.2, 0.2))
	twice, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, onceTimes, st.Times())
}

func TestCropBounds(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300), events.IDMap{"stim": 1}, Options{
		TMin: -0.2, TMax: 0.2, Preload: true,
	})
	require.NoError(t, err)

	// Entirely outside: hard error, store untouched.
	err = st.Crop(1.0, 2.0)
	assert.Error(t, err)
	assert.Equal(t, 41, st.NTimes())

	// Partially outside: clamped.
	require.NoError(t, st.Crop(-0.1, 5.0))
	assert.InDelta(t, -0.1, st.TMin(), 1e-9)
	assert.InDelta(t, 0.2, st.TMax(), 1e-9)

	lazySrc := testSource(t, 1, 1000, 100)
	lazy, err := New(lazySrc, simpleEvents(300), events.IDMap{"stim": 1}, Options{TMin: -0.2, TMax: 0.2})
	require.NoError(t, err)
	assert.Error(t, lazy.Crop(-0.1, 0.1))
}

func TestCropPreservesBaselineWindow(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300), events.IDMap{"stim": 1}, Options{
		TMin: -0.2, TMax: 0.2, Baseline: &Baseline{BMin: -0.2, BMax: 0}, Preload: true,
	})
	require.NoError(t, err)

	require.NoError(t, st.Crop(0.05, 0.2))
	require.NotNil(t, st.BaselineWindow())
	assert.Equal(t, Baseline{BMin: -0.2, BMax: 0}, *st.BaselineWindow())
	assert.True(t, st.BaselineCropped())
}

func TestDropBadAmplitude(t *testing.T) {
	// Channel B1 of epoch 1 gets a spike that violates the bound.
	chans := []source.Channel{
		{Name: "A1", Type: source.TypeEEG, Cal: 1},
		{Name: "B1", Type: source.TypeEEG, Cal: 1},
	}
	data := [][]float64{make([]float64, 1000), make([]float64, 1000)}
	data[1][500] = 50
	src, err := source.NewMemorySource(source.Info{SFreq: 100, Channels: chans}, data)
	require.NoError(t, err)

	st, err := New(src, simpleEvents(200, 500, 800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
		Reject: reject.Thresholds{source.TypeEEG: reject.Amplitude(10)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, st.NEpochs())
	assert.Equal(t, []int{0, 2}, st.Selection())
	dl := st.GetDropLog()
	assert.Equal(t, []string{"B1"}, dl[1])
}

func TestDropBadMonotonicThresholds(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
		Reject: reject.Thresholds{source.TypeEEG: reject.Amplitude(1000)},
	})
	require.NoError(t, err)

	// Tightening is fine, loosening is an error.
	require.NoError(t, st.DropBad(reject.Thresholds{source.TypeEEG: reject.Amplitude(500)}, nil))
	err = st.DropBad(reject.Thresholds{source.TypeEEG: reject.Amplitude(800)}, nil)
	assert.Error(t, err)
}

func TestDropBadByAnnotation(t *testing.T) {
	anns, err := annotations.New([]annotations.Annotation{
		{Onset: 4.9, Duration: 0.3, Description: "BAD_motion"},
	}, time.Time{})
	require.NoError(t, err)
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300, 500, 800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
		RejectByAnnotation: true, Annotations: anns,
	})
	require.NoError(t, err)

	// The epoch anchored at sample 500 spans 4.9..5.1 s absolute.
	assert.Equal(t, 2, st.NEpochs())
	dl := st.GetDropLog()
	assert.Equal(t, []string{"BAD_motion"}, dl[1])
}

func TestDropEpochsUserReason(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300, 500, 800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)

	require.NoError(t, st.DropEpochs([]int{1}, "artifact"))
	assert.Equal(t, 2, st.NEpochs())
	assert.Equal(t, []string{"artifact"}, st.GetDropLog()[1])

	assert.Error(t, st.DropEpochs([]int{9}, ""))
}

func TestGetByKeyHierarchical(t *testing.T) {
	src := testSource(t, 1, 2000, 100)
	evs := []events.Event{
		{Sample: 200, Code: 1},
		{Sample: 500, Code: 2},
		{Sample: 800, Code: 1},
		{Sample: 1100, Code: 3},
	}
	ids := events.IDMap{"auditory/left": 1, "auditory/right": 2, "visual/left": 3}
	st, err := New(src, evs, ids, Options{TMin: -0.1, TMax: 0.1, Preload: true})
	require.NoError(t, err)

	aud, err := st.Get("auditory")
	require.NoError(t, err)
	assert.Equal(t, 3, aud.NEpochs())
	assert.Equal(t, []int{0, 1, 2}, aud.Selection())

	// Tag order is irrelevant.
	left, err := st.Get("left/auditory")
	require.NoError(t, err)
	assert.Equal(t, 2, left.NEpochs())

	// Multiple keys union.
	both, err := st.Get("visual", "auditory/right")
	require.NoError(t, err)
	assert.Equal(t, 2, both.NEpochs())

	// The drop log is untouched by subsetting.
	assert.Equal(t, st.GetDropLog(), aud.GetDropLog())

	_, err = st.Get("nope")
	assert.Error(t, err)
}

func TestSubsetValidation(t *testing.T) {
	src := testSource(t, 1, 2000, 100)
	st, err := New(src, simpleEvents(200, 500, 800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)

	sub, err := st.Subset([]int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, sub.Selection())

	_, err = st.Subset([]int{2, 0})
	assert.Error(t, err)
	_, err = st.Subset([]int{0, 0})
	assert.Error(t, err)
	_, err = st.Subset([]int{5})
	assert.Error(t, err)
}

func TestEqualizeMinTime(t *testing.T) {
	// Group a holds 7 events, group b 6, interleaved; mintime keeps the
	// 6 a-events nearest the b-events and drops the trailing straggler.
	src := testSource(t, 1, 10000, 100)
	var evs []events.Event
	for i := 0; i < 7; i++ {
		evs = append(evs, events.Event{Sample: int64(1000 + i*100), Code: 1})
	}
	for i := 0; i < 6; i++ {
		evs = append(evs, events.Event{Sample: int64(1050 + i*100), Code: 2})
	}
	ids := events.IDMap{"a": 1, "b": 2}
	st, err := New(src, evs, ids, Options{TMin: -0.1, TMax: 0.1, Preload: true})
	require.NoError(t, err)
	require.Equal(t, 13, st.NEpochs())

	require.NoError(t, st.EqualizeCounts([]string{"a", "b"}, EqualizeMinTime))
	a, err := st.Get("a")
	require.NoError(t, err)
	b, err := st.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 6, a.NEpochs())
	assert.Equal(t, 6, b.NEpochs())

	// The farthest a-event (sample 1600, beyond every b) was dropped.
	dl := st.GetDropLog()
	assert.Equal(t, []string{ReasonEqualizedCount}, dl[6])
}

func TestEqualizeValidation(t *testing.T) {
	src := testSource(t, 1, 10000, 100)
	evs := []events.Event{
		{Sample: 1000, Code: 1},
		{Sample: 1200, Code: 2},
	}
	ids := events.IDMap{"auditory/left": 1, "visual": 2}
	st, err := New(src, evs, ids, Options{TMin: -0.1, TMax: 0.1, Preload: true})
	require.NoError(t, err)

	assert.Error(t, st.EqualizeCounts([]string{"visual"}, EqualizeMinTime))
	assert.Error(t, st.EqualizeCounts([]string{"auditory/left", "visual"}, EqualizeMinTime))
	assert.Error(t, st.EqualizeCounts([]string{"visual", "visual"}, ""))
	assert.Error(t, st.EqualizeCounts([]string{"visual", "nothing"}, EqualizeTruncate))
	assert.Error(t, st.EqualizeCounts([]string{"visual", "auditory"}, "bogus"))
}

func TestEqualizeTruncate(t *testing.T) {
	src := testSource(t, 1, 10000, 100)
	var evs []events.Event
	for i := 0; i < 5; i++ {
		evs = append(evs, events.Event{Sample: int64(1000 + i*100), Code: 1})
	}
	for i := 0; i < 3; i++ {
		evs = append(evs, events.Event{Sample: int64(1050 + i*100), Code: 2})
	}
	st, err := New(src, evs, events.IDMap{"a": 1, "b": 2}, Options{TMin: -0.1, TMax: 0.1, Preload: true})
	require.NoError(t, err)

	require.NoError(t, st.EqualizeCounts([]string{"a", "b"}, EqualizeTruncate))
	a, err := st.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 3, a.NEpochs())
	// Trailing rows were truncated.
	assert.Equal(t, []int{0, 1, 2}, a.Selection())
}

func TestCopyIndependence(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)

	cp := st.Copy()
	require.NoError(t, cp.DropEpochs([]int{0}, "gone"))
	assert.Equal(t, 2, st.NEpochs())
	assert.Equal(t, 1, cp.NEpochs())
	assert.Empty(t, st.GetDropLog()[0])

	orig, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	view, err := cp.GetData(GetDataOptions{})
	require.NoError(t, err)
	view[0][0][0] = math.Pi
	after, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, orig, after)
}

func TestShiftTime(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)
	before, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)

	require.NoError(t, st.ShiftTime(0.05, true))
	assert.InDelta(t, -0.05, st.TMin(), 1e-9)
	assert.InDelta(t, 0.15, st.TMax(), 1e-9)

	require.NoError(t, st.ShiftTime(0, false))
	assert.InDelta(t, 0, st.TMin(), 1e-9)
	assert.InDelta(t, 0.2, st.TMax(), 1e-9)

	after, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	lazySrc := testSource(t, 1, 1000, 100)
	lazy, err := New(lazySrc, simpleEvents(300), events.IDMap{"stim": 1}, Options{TMin: -0.1, TMax: 0.1})
	require.NoError(t, err)
	assert.Error(t, lazy.ShiftTime(0.05, true))
}

func TestResample(t *testing.T) {
	src := testSource(t, 2, 2000, 1000)
	st, err := New(src, simpleEvents(500, 1000), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)
	nt := st.NTimes()

	require.NoError(t, st.Resample(500))
	assert.InDelta(t, 500, st.SFreq(), 1e-9)
	assert.Equal(t, nt/2, st.NTimes())
	assert.InDelta(t, -0.1, st.Times()[0], 1e-9)
	assert.InDelta(t, 1000, st.RawSFreq(), 1e-9)

	lazySrc := testSource(t, 1, 2000, 1000)
	lazy, err := New(lazySrc, simpleEvents(500), events.IDMap{"stim": 1}, Options{TMin: -0.1, TMax: 0.1})
	require.NoError(t, err)
	assert.Error(t, lazy.Resample(500))
}

func TestApplyFunc(t *testing.T) {
	src := testSource(t, 2, 1000, 100)
	st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)
	before, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)

	err = st.ApplyFunc(func(_ source.Channel, row []float64) error {
		for i := range row {
			row[i] *= 2
		}
		return nil
	}, []string{"A1"})
	require.NoError(t, err)

	after, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	for e := range after {
		for i := range after[e][0] {
			assert.Equal(t, 2*before[e][0][i], after[e][0][i])
		}
		assert.Equal(t, before[e][1], after[e][1])
	}

	assert.Error(t, st.ApplyFunc(nil, nil))
}

func TestPickChannels(t *testing.T) {
	src := testSource(t, 3, 1000, 100)
	st, err := New(src, simpleEvents(300), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)

	require.NoError(t, st.PickChannels([]string{"C1", "A1"}))
	assert.Equal(t, 2, st.NChannels())
	assert.Equal(t, []string{"C1", "A1"}, st.Info().ChannelNames())

	data, err := st.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	assert.Equal(t, float64(2290), data[0][0][0]) // channel C1, sample 290
}

func TestAddChannels(t *testing.T) {
	build := func(names ...string) *Store {
		chans := make([]source.Channel, len(names))
		data := make([][]float64, len(names))
		for i, n := range names {
			chans[i] = source.Channel{Name: n, Type: source.TypeEEG, Cal: 1}
			data[i] = make([]float64, 1000)
		}
		src, err := source.NewMemorySource(source.Info{SFreq: 100, Channels: chans}, data)
		require.NoError(t, err)
		st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
			TMin: -0.1, TMax: 0.1, Preload: true,
		})
		require.NoError(t, err)
		return st
	}

	a := build("A1")
	b := build("B1", "B2")
	require.NoError(t, a.AddChannels(b))
	assert.Equal(t, 3, a.NChannels())
	assert.Equal(t, []string{"A1", "B1", "B2"}, a.Info().ChannelNames())

	clash := build("B1")
	assert.Error(t, a.AddChannels(clash))
}

func TestConcatenate(t *testing.T) {
	build := func(samples ...int64) *Store {
		src := testSource(t, 2, 2000, 100)
		st, err := New(src, simpleEvents(samples...), events.IDMap{"stim": 1}, Options{
			TMin: -0.1, TMax: 0.1, Preload: true,
		})
		require.NoError(t, err)
		return st
	}

	a := build(300, 500)
	b := build(400, 700, 900)
	joined, err := Concatenate(a, b)
	require.NoError(t, err)

	assert.Equal(t, 5, joined.NEpochs())
	// Selections renumber across the seam.
	assert.Equal(t, []int{0, 1, 2, 3, 4}, joined.Selection())
	assert.Len(t, joined.GetDropLog(), 5)
	assert.NotEqual(t, a.ID(), joined.ID())

	aData, err := a.GetData(GetDataOptions{Copy: true})
	require.NoError(t, err)
	jData, err := joined.GetData(GetDataOptions{Items: []int{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, aData, jData)

	_, err = Concatenate()
	assert.Error(t, err)
}

func TestNewFromDataRoundTrip(t *testing.T) {
	info := source.Info{
		SFreq: 100,
		Channels: []source.Channel{
			{Name: "A1", Type: source.TypeEEG, Cal: 1},
		},
	}
	dl := NewDropLog(3)
	dl.Drop(0, ReasonIgnored)
	st, err := NewFromData(DataConfig{
		Info:      info,
		Data:      [][][]float64{{{1, 2, 3}}, {{4, 5, 6}}},
		Events:    []events.Event{{Sample: 10, Code: 1}, {Sample: 20, Code: 1}},
		IDs:       events.IDMap{"stim": 1},
		TMin:      -0.01,
		Selection: []int{1, 2},
		DropLog:   dl,
	})
	require.NoError(t, err)

	assert.True(t, st.Preloaded())
	assert.Equal(t, []int{1, 2}, st.Selection())
	assert.Equal(t, []string{ReasonIgnored}, st.GetDropLog()[0])
	assert.InDelta(t, 0.01, st.TMax(), 1e-9)

	_, err = NewFromData(DataConfig{
		Info:   info,
		Data:   [][][]float64{{{1, 2}}},
		Events: nil,
		IDs:    events.IDMap{"stim": 1},
	})
	assert.Error(t, err)
}

func TestEmptyStoreOperationsFail(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.DropEpochs([]int{0}, "gone"))
	require.Equal(t, 0, st.NEpochs())

	assert.Error(t, st.requireNonEmpty("operate"))
	data, err := st.GetData(GetDataOptions{})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestAnnotationsPerEpoch(t *testing.T) {
	anns, err := annotations.New([]annotations.Annotation{
		{Onset: 2.95, Duration: 0.1, Description: "blink"},
		{Onset: 7.0, Duration: 0.1, Description: "elsewhere"},
	}, time.Time{})
	require.NoError(t, err)
	src := testSource(t, 1, 1000, 100)
	st, err := New(src, simpleEvents(300, 500), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true, Annotations: anns,
	})
	require.NoError(t, err)

	per, err := st.AnnotationsPerEpoch()
	require.NoError(t, err)
	require.Len(t, per, 2)
	require.Len(t, per[0], 1)
	assert.Equal(t, "blink", per[0][0].Description)
	assert.Empty(t, per[1])
}

func TestMetadataQueries(t *testing.T) {
	src := testSource(t, 1, 1000, 100)
	evs := simpleEvents(100, 200, 300, 400)
	meta, err := metadata.New(
		[]metadata.Column{
			{Name: "condition", Kind: metadata.KindString},
			{Name: "rt", Kind: metadata.KindNumber},
		},
		[][]any{
			{"target", 0.31},
			{"standard", 0.52},
			{"target", 0.28},
			{"standard", 0.44},
		},
	)
	require.NoError(t, err)

	st, err := New(src, evs, events.IDMap{"stim": 1}, Options{
		TMax: 0.1, Preload: true, Metadata: meta,
	})
	require.NoError(t, err)

	byExpr, err := st.QueryMetadata("condition = 'target' AND rt < 0.3")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, byExpr.Selection())

	byFilter, err := st.FilterMetadata("condition", metadata.OpEq, "standard")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, byFilter.Selection())

	// Expression queries go away when the sqlite backend is disabled,
	// the simple filter keeps working.
	prev := conf.Setting()
	simple := *prev
	simple.Metadata.Backend = conf.MetadataBackendSimple
	conf.SetTestSettings(&simple)
	defer conf.SetTestSettings(prev)

	_, err = st.QueryMetadata("rt < 0.3")
	assert.Error(t, err)
	_, err = st.FilterMetadata("condition", metadata.OpEq, "target")
	assert.NoError(t, err)
}

func TestLazyAccessAppliesPendingRejection(t *testing.T) {
	chans := []source.Channel{
		{Name: "A1", Type: source.TypeEEG, Cal: 1},
		{Name: "B1", Type: source.TypeEEG, Cal: 1},
	}
	data := [][]float64{make([]float64, 1000), make([]float64, 1000)}
	data[1][200] = 50 // spike inside epoch 0's window
	src, err := source.NewMemorySource(source.Info{SFreq: 100, Channels: chans}, data)
	require.NoError(t, err)

	opts := Options{
		TMin: -0.1, TMax: 0.1,
		Reject: reject.Thresholds{source.TypeEEG: reject.Amplitude(10)},
	}
	preOpts := opts
	preOpts.Preload = true

	preloaded, err := New(src, simpleEvents(200, 500), events.IDMap{"stim": 1}, preOpts)
	require.NoError(t, err)
	lazy, err := New(src, simpleEvents(200, 500), events.IDMap{"stim": 1}, opts)
	require.NoError(t, err)
	require.False(t, lazy.Preloaded())

	got, err := lazy.GetData(GetDataOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Access screened the deferred store without materializing it; its
	// selection and drop log match the preloaded construction's.
	assert.False(t, lazy.Preloaded())
	assert.Equal(t, preloaded.Selection(), lazy.Selection())
	assert.Equal(t, preloaded.GetDropLog(), lazy.GetDropLog())
	assert.Equal(t, []string{"B1"}, lazy.GetDropLog()[0])
}

func TestLoadAppliesPendingRejection(t *testing.T) {
	chans := []source.Channel{{Name: "A1", Type: source.TypeEEG, Cal: 1}}
	data := [][]float64{make([]float64, 1000)}
	data[0][500] = 50
	src, err := source.NewMemorySource(source.Info{SFreq: 100, Channels: chans}, data)
	require.NoError(t, err)

	st, err := New(src, simpleEvents(200, 500, 800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1,
		Reject: reject.Thresholds{source.TypeEEG: reject.Amplitude(10)},
	})
	require.NoError(t, err)
	require.Equal(t, 3, st.NEpochs())

	require.NoError(t, st.Load())
	assert.Equal(t, 2, st.NEpochs())
	assert.Equal(t, []int{0, 2}, st.Selection())
	assert.Equal(t, []string{"A1"}, st.GetDropLog()[1])
}

func TestDropBadByAnnotationWithFirstSamp(t *testing.T) {
	// Annotation onsets count from the first available sample, so an
	// offset recording start must not shift the overlap test.
	anns, err := annotations.New([]annotations.Annotation{
		{Onset: 4.95, Duration: 0.1, Description: "BAD_motion"},
	}, time.Time{})
	require.NoError(t, err)

	chans := []source.Channel{{Name: "A1", Type: source.TypeEEG, Cal: 1}}
	src, err := source.NewMemorySource(source.Info{
		SFreq:     100,
		FirstSamp: 1000,
		Channels:  chans,
	}, [][]float64{make([]float64, 1000)})
	require.NoError(t, err)

	// Absolute samples 1500 and 1800 sit at annotation times 5.0 and 8.0.
	st, err := New(src, simpleEvents(1500, 1800), events.IDMap{"stim": 1}, Options{
		TMin: -0.1, TMax: 0.1, Preload: true,
		Annotations: anns, RejectByAnnotation: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, st.NEpochs())
	assert.Equal(t, []int{1}, st.Selection())
	assert.Equal(t, []string{"BAD_motion"}, st.GetDropLog()[0])
}
