package curve

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSortsAndDerivesMagnitude(t *testing.T) {
	raw := []Sample{
		{Timestamp: 3, X: 0, Y: 0, Z: 2},
		{Timestamp: 1, X: 3, Y: 4, Z: 0},
		{Timestamp: 2, X: 0.75, Y: 1, Z: 0},
	}
	c := Load(Acceleration, raw)

	assert.Equal(t, []float64{1, 2, 3}, c.Timestamps())
	assert.Equal(t, []float64{5, 1.25, 2}, c.Magnitudes())
	assert.Equal(t, 3.0, raw[0].Timestamp, "input must not be reordered")
	assert.Equal(t, 2.0, c.Duration())
}

func TestLoadGyroscopeHasNoMagnitude(t *testing.T) {
	c := Load(Gyroscope, []Sample{{Timestamp: 1, X: 3, Y: 4}})
	assert.Zero(t, c.Samples[0].Magnitude)
	x, y, z := c.Axes()
	assert.Equal(t, []float64{3}, x)
	assert.Equal(t, []float64{4}, y)
	assert.Equal(t, []float64{0}, z)
}

func TestLoadIsStableForEqualTimestamps(t *testing.T) {
	c := Load(Gyroscope, []Sample{{Timestamp: 1, X: 1}, {Timestamp: 0}, {Timestamp: 1, X: 2}})
	assert.Equal(t, 1.0, c.Samples[1].X)
	assert.Equal(t, 2.0, c.Samples[2].X)
}

func TestJSONCurveRoundTrip(t *testing.T) {
	in := []Sample{{Timestamp: 0.5, X: 1, Y: -2, Z: 3.25}, {Timestamp: 0.6, X: 0, Y: 0, Z: 9.81}}
	enc, err := EncodeJSONCurve(in)
	require.NoError(t, err)

	out, err := DecodeJSONCurve(enc)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("curve mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSONCurveErrors(t *testing.T) {
	_, err := DecodeJSONCurve("not base64!!")
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeJSONCurve("eyJ4Ijox") // {"x":1
	require.ErrorIs(t, err, ErrDecode)
}
