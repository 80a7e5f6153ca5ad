// Package decoder emits the console-side mirror of the payload codec: a
// human-readable configuration summary and a TTN-style JavaScript uplink
// decoder. Both are generated from the same Layout the encoder uses, so the
// two sides cannot drift apart structurally.
package decoder

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/buoyctl/internal/payload"
)

// Summary renders the active configuration: sensors, payload size and the
// full field table (offset, meaning, scale, byte order).
func Summary(l payload.Layout, sensorNames []string) string {
	var b strings.Builder

	b.WriteString("=== BUOY NODE CONFIGURATION ===\n\n")
	b.WriteString("Active sensors:\n")
	for _, name := range sensorNames {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	fmt.Fprintf(&b, "\nPayload size: %d bytes\n", l.Size())
	fmt.Fprintf(&b, "Payload structure (%d bytes):\n", l.Size())

	for _, f := range l.Fields() {
		span := fmt.Sprintf("Byte %d", f.Offset)
		if f.Width > 1 {
			span = fmt.Sprintf("Bytes %d-%d", f.Offset, f.Offset+f.Width-1)
		}
		if f.Width > 1 {
			fmt.Fprintf(&b, "  %-12s %s - big-endian\n", span+":", f.Desc)
		} else {
			fmt.Fprintf(&b, "  %-12s %s\n", span+":", f.Desc)
		}
	}

	return b.String()
}

// Script renders the executable decoder text for the TTN console payload
// formatter. An unexpected payload length produces a warning, not an error,
// so partially degraded uplinks still decode.
func Script(l payload.Layout) string {
	var b strings.Builder

	b.WriteString("function decodeUplink(input) {\n")
	b.WriteString("  var data = {};\n")
	b.WriteString("  var bytes = input.bytes;\n")
	b.WriteString("  var offset = 0;\n")
	b.WriteString("  var warnings = [];\n\n")

	fmt.Fprintf(&b, "  if (bytes.length !== %d) {\n", l.Size())
	fmt.Fprintf(&b, "    warnings.push('Payload size should be %d bytes, got ' + bytes.length);\n", l.Size())
	b.WriteString("  }\n\n")

	for _, f := range l.Fields() {
		writeFieldDecode(&b, f)
	}

	b.WriteString("  return { data: data, warnings: warnings, errors: [] };\n")
	b.WriteString("}\n")

	return b.String()
}

func writeFieldDecode(b *strings.Builder, f payload.Field) {
	span := fmt.Sprintf("Byte %d", f.Offset)
	if f.Width > 1 {
		span = fmt.Sprintf("Bytes %d-%d", f.Offset, f.Offset+f.Width-1)
	}

	switch {
	case f.Key == payload.FieldReserved:
		fmt.Fprintf(b, "  // %s: %s\n", span, f.Desc)
		b.WriteString("  offset++;\n\n")
	case f.Width == 1:
		fmt.Fprintf(b, "  // %s: %s\n", span, f.Desc)
		fmt.Fprintf(b, "  data.%s = bytes[offset++];\n\n", f.Key)
	default:
		fmt.Fprintf(b, "  // %s: %s - big-endian\n", span, f.Desc)
		fmt.Fprintf(b, "  var %s_raw = (bytes[offset++] << 8) | bytes[offset++];\n", f.Key)
		fmt.Fprintf(b, "  data.%s = %s_raw / %.1f;\n\n", f.Key, f.Key, f.Scale)
	}
}

// Decode is the Go rendition of the generated script, used to validate the
// encoder and the emitted decoder against each other. It returns the decoded
// fields plus any length warning.
func Decode(l payload.Layout, bytes []byte) (map[string]float64, []string) {
	data := make(map[string]float64)
	var warnings []string

	if len(bytes) != l.Size() {
		warnings = append(warnings, fmt.Sprintf("Payload size should be %d bytes, got %d", l.Size(), len(bytes)))
	}

	for _, f := range l.Fields() {
		if f.Key == payload.FieldReserved {
			continue
		}
		if f.Offset+f.Width > len(bytes) {
			break
		}

		switch f.Width {
		case 1:
			data[f.Key] = float64(bytes[f.Offset])
		default:
			raw := uint16(bytes[f.Offset])<<8 | uint16(bytes[f.Offset+1])
			data[f.Key] = payload.Unscale(raw, f.Scale)
		}
	}

	return data, warnings
}
