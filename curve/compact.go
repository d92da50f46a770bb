package curve

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"
)

const (
	// MinPayloadSize is the smallest decompressed buffer accepted, regardless of version.
	MinPayloadSize = 9

	headerSizeV1  = 5
	headerSizeV3  = 9
	recordSize    = 16
	amplitudeSize = 4
)

var (
	// ErrDecode is wrapped by every payload decode failure.
	ErrDecode = errors.New("compact curve decode")
	// ErrTruncated reports header counts that need more bytes than the buffer holds.
	ErrTruncated = fmt.Errorf("%w: truncated payload", ErrDecode)
	// ErrLengthMismatch reports bytes left over after the records named by the header.
	ErrLengthMismatch = fmt.Errorf("%w: length mismatch", ErrDecode)
)

// Payload is the decoded form of a CompactCurvePayload blob.
type Payload struct {
	Version              uint8
	Acceleration         []Sample
	Gyroscope            []Sample
	SmoothedAcceleration []Sample
	CycleAmplitudes      []float32

	// TrailingBytes counts bytes after the last record the header accounts for.
	TrailingBytes int
}

// HeaderSize returns the header length for a payload version.
func HeaderSize(version uint8) int {
	if version >= 3 {
		return headerSizeV3
	}
	return headerSizeV1
}

// Size returns the exact decompressed length the payload encodes to.
func (p *Payload) Size() int {
	n := HeaderSize(p.Version) + (len(p.Acceleration)+len(p.Gyroscope))*recordSize
	if p.Version >= 3 {
		n += len(p.SmoothedAcceleration)*recordSize + len(p.CycleAmplitudes)*amplitudeSize
	}
	return n
}

// Decode parses a decompressed CompactCurvePayload buffer.
// Extra bytes past the declared records are tolerated and counted in TrailingBytes.
func Decode(buf []byte) (*Payload, error) {
	if len(buf) < MinPayloadSize {
		return nil, fmt.Errorf("%w: payload too short: %d bytes", ErrDecode, len(buf))
	}
	version := buf[0]
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("%w: unknown payload version %d", ErrDecode, version)
	}

	accelCount := int(binary.LittleEndian.Uint16(buf[1:3]))
	gyroCount := int(binary.LittleEndian.Uint16(buf[3:5]))
	smoothedCount, cycleCount := 0, 0
	if version >= 3 {
		smoothedCount = int(binary.LittleEndian.Uint16(buf[5:7]))
		cycleCount = int(binary.LittleEndian.Uint16(buf[7:9]))
	}

	p := &Payload{Version: version}
	r := payloadReader{buf: buf, off: HeaderSize(version)}
	var err error
	if p.Acceleration, err = r.samples(accelCount); err != nil {
		return nil, fmt.Errorf("acceleration records: %w", err)
	}
	if p.Gyroscope, err = r.samples(gyroCount); err != nil {
		return nil, fmt.Errorf("gyroscope records: %w", err)
	}
	if p.SmoothedAcceleration, err = r.samples(smoothedCount); err != nil {
		return nil, fmt.Errorf("smoothed acceleration records: %w", err)
	}
	if p.CycleAmplitudes, err = r.amplitudes(cycleCount); err != nil {
		return nil, fmt.Errorf("cycle amplitudes: %w", err)
	}
	p.TrailingBytes = len(buf) - r.off
	return p, nil
}

// DecodeStrict is Decode with the additional requirement that the buffer
// length equals exactly what the header counts describe.
func DecodeStrict(buf []byte) (*Payload, error) {
	p, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	if p.TrailingBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes after last record (expected total %d, got %d)",
			ErrLengthMismatch, p.TrailingBytes, len(buf)-p.TrailingBytes, len(buf))
	}
	return p, nil
}

// DecodeCompressed inflates a raw DEFLATE blob and decodes it.
func DecodeCompressed(data []byte) (*Payload, error) {
	buf, err := Inflate(data)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}

// Encode writes the payload in its version's layout. Versions 1 and 2 cannot
// carry smoothed samples or cycle amplitudes. Output shorter than
// MinPayloadSize is zero-padded so it stays decodable.
func Encode(p *Payload) ([]byte, error) {
	if p.Version < 1 || p.Version > 3 {
		return nil, fmt.Errorf("encode: unsupported payload version %d", p.Version)
	}
	if p.Version < 3 && (len(p.SmoothedAcceleration) > 0 || len(p.CycleAmplitudes) > 0) {
		return nil, fmt.Errorf("encode: version %d has no smoothed or cycle sections", p.Version)
	}
	for _, n := range []int{len(p.Acceleration), len(p.Gyroscope), len(p.SmoothedAcceleration), len(p.CycleAmplitudes)} {
		if n > math.MaxUint16 {
			return nil, fmt.Errorf("encode: section of %d entries exceeds u16 count", n)
		}
	}

	size := p.Size()
	if size < MinPayloadSize {
		size = MinPayloadSize
	}
	out := make([]byte, size)
	out[0] = p.Version
	binary.LittleEndian.PutUint16(out[1:3], uint16(len(p.Acceleration)))
	binary.LittleEndian.PutUint16(out[3:5], uint16(len(p.Gyroscope)))
	if p.Version >= 3 {
		binary.LittleEndian.PutUint16(out[5:7], uint16(len(p.SmoothedAcceleration)))
		binary.LittleEndian.PutUint16(out[7:9], uint16(len(p.CycleAmplitudes)))
	}

	off := HeaderSize(p.Version)
	for _, section := range [][]Sample{p.Acceleration, p.Gyroscope, p.SmoothedAcceleration} {
		for _, s := range section {
			putFloat32(out[off:], s.Timestamp)
			putFloat32(out[off+4:], s.X)
			putFloat32(out[off+8:], s.Y)
			putFloat32(out[off+12:], s.Z)
			off += recordSize
		}
	}
	for _, a := range p.CycleAmplitudes {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(a))
		off += amplitudeSize
	}
	return out, nil
}

// EncodeCompressed encodes and deflates a payload.
func EncodeCompressed(p *Payload) ([]byte, error) {
	buf, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return Deflate(buf)
}

// Inflate decompresses raw (headerless) DEFLATE data.
func Inflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrDecode, err)
	}
	return out, nil
}

// Deflate compresses data as raw (headerless) DEFLATE.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type payloadReader struct {
	buf []byte
	off int
}

func (r *payloadReader) samples(count int) ([]Sample, error) {
	if count == 0 {
		return nil, nil
	}
	need := count * recordSize
	if r.off+need > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, need, r.off, len(r.buf)-r.off)
	}
	out := make([]Sample, count)
	for i := range out {
		b := r.buf[r.off : r.off+recordSize]
		out[i] = Sample{
			Timestamp: getFloat32(b[0:4]),
			X:         getFloat32(b[4:8]),
			Y:         getFloat32(b[8:12]),
			Z:         getFloat32(b[12:16]),
		}
		r.off += recordSize
	}
	return out, nil
}

func (r *payloadReader) amplitudes(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	need := count * amplitudeSize
	if r.off+need > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, need, r.off, len(r.buf)-r.off)
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
		r.off += amplitudeSize
	}
	return out, nil
}

func getFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func putFloat32(b []byte, v float64) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
}
