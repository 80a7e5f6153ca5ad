package payload_test

import (
	"testing"

	"codeberg.org/mutker/buoyctl/internal/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tag, ok := payload.ParseTag("bme280")
	require.True(t, ok)
	assert.Equal(t, payload.TagBME280, tag)

	_, ok = payload.ParseTag("bmp180")
	assert.False(t, ok, "Expected unknown sensor name to be rejected")
}

func TestScaledUint16(t *testing.T) {
	assert.Equal(t, uint16(723), payload.ScaledUint16(7.23, payload.ScaleCentiPH))
	assert.Equal(t, uint16(2215), payload.ScaledUint16(22.15, payload.ScaleCentiDeg))
	assert.Equal(t, uint16(10132), payload.ScaledUint16(1013.2, payload.ScaleDeciHPa))

	// Rounding, not truncation
	assert.Equal(t, uint16(724), payload.ScaledUint16(7.235, payload.ScaleCentiPH))
}

func TestScaledUint16SentinelWrap(t *testing.T) {
	// Negative sentinels wrap through the 16-bit cast, the console side
	// sees a distinctive large raw value instead of a plausible reading.
	assert.Equal(t, uint16(0xFF9C), payload.ScaledUint16(-1, payload.ScaleCentiPH))
	assert.Equal(t, uint16(0xCE64), payload.ScaledUint16(-127, payload.ScaleCentiDeg))
}

func TestUnscaleRoundTrip(t *testing.T) {
	raw := payload.ScaledUint16(7.23, payload.ScaleCentiPH)
	assert.InDelta(t, 7.23, payload.Unscale(raw, payload.ScaleCentiPH), 0.005)

	raw = payload.ScaledUint16(1013.25, payload.ScaleDeciHPa)
	assert.InDelta(t, 1013.25, payload.Unscale(raw, payload.ScaleDeciHPa), 0.05)
}

func TestBufferWireOrder(t *testing.T) {
	buf := payload.NewBuffer(4)

	n := buf.PutUint16(1, 0x02D3)
	require.Equal(t, 2, n)

	// Most significant byte first
	assert.Equal(t, []byte{0x00, 0x02, 0xD3, 0x00}, buf.Bytes())
	assert.Equal(t, uint16(0x02D3), buf.Uint16(1))
}

func TestBufferBounds(t *testing.T) {
	buf := payload.NewBuffer(2)

	assert.Equal(t, 0, buf.PutByte(-1, 1))
	assert.Equal(t, 0, buf.PutByte(2, 1))
	assert.Equal(t, 0, buf.PutUint16(1, 1), "Expected write straddling the end to be rejected")
	assert.Equal(t, []byte{0, 0}, buf.Bytes())
}

func TestBufferReset(t *testing.T) {
	buf := payload.NewBuffer(3)
	buf.PutByte(0, 0xAA)
	buf.PutUint16(1, 0xBBCC)

	buf.Reset()
	assert.Equal(t, []byte{0, 0, 0}, buf.Bytes())
}
