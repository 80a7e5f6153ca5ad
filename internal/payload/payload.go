package payload

import (
	"encoding/binary"
	"math"
)

// Tag identifies a sensor variant that can be compiled into the node.
type Tag string

const (
	TagPH      Tag = "ph"
	TagDHT22   Tag = "dht22"
	TagDHT11   Tag = "dht11"
	TagDS18B20 Tag = "ds18b20"
	TagBME280  Tag = "bme280"
	TagHCSR04  Tag = "hcsr04"
	TagNone    Tag = "none"
)

// Tags returns the known variant tags in canonical order.
func Tags() []Tag {
	return []Tag{TagPH, TagDHT22, TagDHT11, TagDS18B20, TagBME280, TagHCSR04, TagNone}
}

// ParseTag validates a configured sensor name.
func ParseTag(s string) (Tag, bool) {
	for _, t := range Tags() {
		if string(t) == s {
			return t, true
		}
	}

	return "", false
}

// Buffer is a fixed-capacity wire buffer. Fields are written at the offset
// the Layout assigns them, so an unavailable sensor simply leaves zeroes
// behind and contributes nothing to the byte count.
type Buffer struct {
	b []byte
}

func NewBuffer(size int) *Buffer {
	return &Buffer{b: make([]byte, size)}
}

// PutByte writes a single byte at offset and returns the number of bytes
// written (0 when the offset is outside the buffer).
func (b *Buffer) PutByte(offset int, v byte) int {
	if offset < 0 || offset >= len(b.b) {
		return 0
	}
	b.b[offset] = v

	return 1
}

// PutUint16 writes v at offset in wire byte order.
func (b *Buffer) PutUint16(offset int, v uint16) int {
	if offset < 0 || offset+2 > len(b.b) {
		return 0
	}
	binary.BigEndian.PutUint16(b.b[offset:], v)

	return 2
}

// Uint16 reads the two bytes at offset in wire byte order.
func (b *Buffer) Uint16(offset int) uint16 {
	return binary.BigEndian.Uint16(b.b[offset:])
}

func (b *Buffer) Bytes() []byte {
	return b.b
}

func (b *Buffer) Size() int {
	return len(b.b)
}

func (b *Buffer) Reset() {
	for i := range b.b {
		b.b[i] = 0
	}
}

// ScaledUint16 converts a physical value to its wire representation:
// round(value * scale) truncated to 16 bits. Sentinel values below zero
// wrap the same way the integer cast on the device did, so "no reading"
// stays distinguishable on the console side.
func ScaledUint16(v, scale float64) uint16 {
	return uint16(int32(math.Round(v * scale)))
}

// Unscale is the exact inverse of ScaledUint16 for in-range values.
func Unscale(raw uint16, scale float64) float64 {
	return float64(raw) / scale
}
