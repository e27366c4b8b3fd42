package occplot

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayFlags(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	deadTimes := FloatArrayFlags{Array: []float64{0, 5, 10, 30}}
	grids := IntArrayFlags{Array: []int{100, 50}}
	untouched := IntArrayFlags{Array: []int{1, 2}}
	fs.Var(&deadTimes, "deadtime", "")
	fs.Var(&grids, "grid", "")
	fs.Var(&untouched, "other", "")

	require.NoError(t, fs.Parse([]string{"-deadtime", "2.5", "-grid", "25", "-grid", "20", "-deadtime", "1"}))
	assert.Equal(t, []float64{2.5, 1}, deadTimes.Array, "the first value replaces the defaults")
	assert.Equal(t, []int{25, 20}, grids.Array)
	assert.Equal(t, []int{1, 2}, untouched.Array)
	assert.Equal(t, "[25 20]", grids.String())

	assert.Error(t, fs.Parse([]string{"-grid", "wide"}))
	assert.Error(t, fs.Parse([]string{"-deadtime", "long"}))
}
