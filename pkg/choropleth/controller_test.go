package choropleth

import (
	"context"
	"errors"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	frames []Frame
}

func (r *recordingRenderer) Render(f Frame) { r.frames = append(r.frames, f) }

func testDataset() *Dataset {
	return &Dataset{
		Features: []*geojson.Feature{feature("Testland"), feature("Otherland"), feature("Nowhere")},
		Records:  testRecords(),
	}
}

func TestControllerUsageBeforeReady(t *testing.T) {
	r := &recordingRenderer{}
	c := NewController(r)
	assert.Equal(t, Uninitialized, c.State())

	err := c.SetYear(2022)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Empty(t, r.frames)
}

func TestControllerLoadFailureStaysUninitialized(t *testing.T) {
	r := &recordingRenderer{}
	c := NewController(r)
	loadErr := errors.New("boom")

	err := c.Load(context.Background(), func(context.Context) (*Dataset, error) { return nil, loadErr }, DefaultYear)
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, Uninitialized, c.State())
	assert.Empty(t, r.frames)
	assert.ErrorIs(t, c.SetYear(2021), ErrNotReady)
}

func TestControllerInitialAndUpdateFrames(t *testing.T) {
	r := &recordingRenderer{}
	c := NewController(r)
	data := testDataset()

	require.NoError(t, c.Load(context.Background(), func(context.Context) (*Dataset, error) { return data, nil }, DefaultYear))
	assert.Equal(t, Ready, c.State())
	require.Len(t, r.frames, 1)

	initial := r.frames[0]
	assert.True(t, initial.Initial)
	assert.Zero(t, initial.Transition)
	assert.Equal(t, 2022, initial.Year)
	assert.Equal(t, 2, initial.Matched)
	require.Len(t, initial.Fills, 3)
	assert.Equal(t, DefaultScale.Colors[2], initial.Fills[0]) // 123.4
	assert.Equal(t, DefaultScale.Colors[1], initial.Fills[1]) // 60
	assert.Equal(t, LightGray, initial.Fills[2])

	require.NoError(t, c.SetYearText("2021"))
	require.Len(t, r.frames, 2)
	update := r.frames[1]
	assert.False(t, update.Initial)
	assert.Equal(t, TransitionDuration, update.Transition)
	assert.Equal(t, 2021, c.Year())
	assert.Equal(t, LightGray, update.Fills[0])
	assert.Equal(t, DefaultScale.Colors[1], update.Fills[1]) // 55
}

func TestControllerEveryEventRenders(t *testing.T) {
	r := &recordingRenderer{}
	c := NewController(r)
	c.Attach(testDataset(), DefaultYear)

	for _, y := range []int{2021, 2022, 2022, 2021} {
		require.NoError(t, c.SetYear(y))
	}
	assert.Len(t, r.frames, 5)
	assert.Equal(t, 2021, r.frames[4].Year)
}

func TestControllerBadSliderText(t *testing.T) {
	r := &recordingRenderer{}
	c := NewController(r)
	c.Attach(testDataset(), DefaultYear)

	assert.Error(t, c.SetYearText("not-a-year"))
	assert.Len(t, r.frames, 1)
	assert.Equal(t, DefaultYear, c.Year())
}

func TestDatasetCloneIsIndependent(t *testing.T) {
	data := testDataset()
	clone := data.Clone()

	JoinYear(2022, clone.Features, clone.Records)
	_, ok := Energy(clone.Features[0])
	assert.True(t, ok)
	_, ok = Energy(data.Features[0])
	assert.False(t, ok, "joining the clone must not touch the original")
	assert.Same(t, data.Features[0].Geometry, clone.Features[0].Geometry)
}

func TestDatasetYears(t *testing.T) {
	data := testDataset()
	assert.Equal(t, []int{2021, 2022}, data.Years())
	lo, hi, ok := data.YearRange()
	assert.True(t, ok)
	assert.Equal(t, 2021, lo)
	assert.Equal(t, 2022, hi)

	_, _, ok = (&Dataset{}).YearRange()
	assert.False(t, ok)
}

func TestDatasetClampYear(t *testing.T) {
	data := testDataset()
	for _, tc := range []struct {
		year, want int
	}{
		{2000, 2021},
		{2021, 2021},
		{2022, 2022},
		{2030, 2022},
	} {
		assert.Equal(t, tc.want, data.ClampYear(tc.year), "year %d", tc.year)
	}
	assert.Equal(t, 2030, (&Dataset{}).ClampYear(2030))
}
