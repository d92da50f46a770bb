package curve

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticSamples(n int, t0, step float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		ts := t0 + float64(i)*step
		out[i] = Sample{
			Timestamp: ts,
			X:         math.Sin(ts) * 3.1,
			Y:         math.Cos(ts) * 1.7,
			Z:         0.25 * float64(i%7),
		}
	}
	return out
}

func TestCompressedRoundTripAllVersions(t *testing.T) {
	for _, version := range []uint8{1, 2, 3} {
		p := &Payload{
			Version:      version,
			Acceleration: syntheticSamples(250, 1000.125, 0.01),
			Gyroscope:    syntheticSamples(120, 1000.5, 0.02),
		}
		if version == 3 {
			p.SmoothedAcceleration = syntheticSamples(30, 1000, 0.1)
			p.CycleAmplitudes = []float32{1.5, 2.25, 3.125}
		}

		blob, err := EncodeCompressed(p)
		require.NoError(t, err, "version %d", version)

		got, err := DecodeCompressed(blob)
		require.NoError(t, err, "version %d", version)
		assert.Equal(t, version, got.Version)
		require.Len(t, got.Acceleration, len(p.Acceleration))
		require.Len(t, got.Gyroscope, len(p.Gyroscope))
		require.Len(t, got.SmoothedAcceleration, len(p.SmoothedAcceleration))
		assert.Equal(t, p.CycleAmplitudes, got.CycleAmplitudes)
		assert.Zero(t, got.TrailingBytes)

		assertFloat32Equal(t, p.Acceleration, got.Acceleration)
		assertFloat32Equal(t, p.Gyroscope, got.Gyroscope)
		assertFloat32Equal(t, p.SmoothedAcceleration, got.SmoothedAcceleration)
	}
}

func assertFloat32Equal(t *testing.T, want, got []Sample) {
	t.Helper()
	for i := range want {
		assert.Equal(t, float64(float32(want[i].Timestamp)), got[i].Timestamp, "timestamp %d", i)
		assert.Equal(t, float64(float32(want[i].X)), got[i].X, "x %d", i)
		assert.Equal(t, float64(float32(want[i].Y)), got[i].Y, "y %d", i)
		assert.Equal(t, float64(float32(want[i].Z)), got[i].Z, "z %d", i)
	}
}

func TestDecodeLayoutIsLittleEndian(t *testing.T) {
	buf := make([]byte, 5+16)
	buf[0] = 1
	binary.LittleEndian.PutUint16(buf[1:], 1)
	binary.LittleEndian.PutUint16(buf[3:], 0)
	binary.LittleEndian.PutUint32(buf[5:], math.Float32bits(12.5))
	binary.LittleEndian.PutUint32(buf[9:], math.Float32bits(-1))
	binary.LittleEndian.PutUint32(buf[13:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(buf[17:], math.Float32bits(9.75))

	p, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, p.Acceleration, 1)
	assert.Equal(t, Sample{Timestamp: 12.5, X: -1, Y: 0.5, Z: 9.75}, p.Acceleration[0])
	assert.Empty(t, p.Gyroscope)
}

func TestDecodeFailureModes(t *testing.T) {
	_, err := Decode(make([]byte, 5))
	require.ErrorIs(t, err, ErrDecode)

	buf := make([]byte, 9)
	buf[0] = 4
	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrDecode)

	buf[0] = 0
	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeTruncatedRecords(t *testing.T) {
	buf := make([]byte, 9+16)
	buf[0] = 3
	binary.LittleEndian.PutUint16(buf[1:], 2)

	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrTruncated)
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodeStrictRejectsTrailingBytes(t *testing.T) {
	raw, err := Encode(&Payload{Version: 2, Acceleration: syntheticSamples(3, 0, 0.01)})
	require.NoError(t, err)
	raw = append(raw, 0xAA, 0xBB)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TrailingBytes)
	assert.Len(t, p.Acceleration, 3)

	_, err = DecodeStrict(raw)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEncodeRejectsSectionsVersionCannotCarry(t *testing.T) {
	_, err := Encode(&Payload{Version: 2, CycleAmplitudes: []float32{1}})
	require.Error(t, err)
	_, err = Encode(&Payload{Version: 7})
	require.Error(t, err)
}

func TestInflateGarbage(t *testing.T) {
	_, err := DecodeCompressed([]byte{0xff, 0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ErrDecode)
}
