package occplot

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeatMap(t *testing.T) {
	t.Parallel()

	noDead, dead := ratioFixture(t)
	var buf bytes.Buffer
	st := HeatMapStyle("Photon Distribution")
	err := RenderHeatMap(&buf, noDead, st, CircleOverlay{
		Circle: Circle{X: 2, Y: 2, R: 1},
		Color:  color.RGBA{B: 255, A: 255},
		Label:  "R = 1.0000 cm (80.0%)",
	})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())

	ratio, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)
	st.ColorBar = false
	st.ZMin, st.ZMax = 0, 1
	buf.Reset()
	require.NoError(t, RenderHeatMap(&buf, ratio, st))
	_, err = png.Decode(&buf)
	assert.NoError(t, err)
}

func TestRenderHeatMap_EmptyGrid(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderHeatMap(&buf, NewGrid(testBinning), HeatMapStyle("")))
	assert.NotZero(t, buf.Len())
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	noDead, _ := ratioFixture(t)
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, noDead, HeatMapStyle("Photon Distribution")))
	assert.Contains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), "Photon Distribution")
}

func TestSavePlots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	noDead, dead := ratioFixture(t)
	ratio, err := NewRatioGrid(noDead, dead)
	require.NoError(t, err)

	cf := noDead.Frequencies()
	st := HistStyle("Counts", "NPhotons Per Channel", "Normalized Frequency")
	st.LogY = true
	st.YMin, st.YMax = 1e-7, 10
	hists := filepath.Join(dir, "counts.png")
	require.NoError(t, SaveHists(hists, st, Series{Hist: cf.Hist(cf.MaxCount()), Label: "4x4"}))

	pts := RadialPoints(ratio, 2, 2, 2)
	points := filepath.Join(dir, "points.png")
	require.NoError(t, SavePoints(points, HistStyle("Ratio", "Distance", "Ratio"),
		RadialSeries(pts, "4x4"),
		ProfileSeries(RadialProfile(pts, 4, 0, 2), "profile"),
	))

	for _, p := range []string{hists, points} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), p)
	}
}

func TestProfileSeries_SkipsEmptyBins(t *testing.T) {
	t.Parallel()

	s := ProfileSeries([]ProfileBin{
		{Center: 0.5, Mean: 0.9, StdErr: 0.01, N: 3},
		{Center: 1.5},
		{Center: 2.5, Mean: 0.8, N: 1},
	}, "x")
	assert.Equal(t, []float64{0.5, 2.5}, s.X)
	assert.Equal(t, []float64{0.9, 0.8}, s.Y)
	assert.Equal(t, []float64{0.01, 0}, s.YErr)
}
