package payload

// Field keys as they appear in the decoded uplink object.
const (
	FieldBattery    = "battery_percent"
	FieldPH         = "ph"
	FieldTempExt    = "temperature_ext"
	FieldTempWater  = "temperature_water_1m"
	FieldHumidity   = "humidity"
	FieldPressure   = "pressure"
	FieldDistance   = "distance_cm"
	FieldReserved   = "reserved"
)

// Scale factors are part of the static wire contract, not computed at runtime.
const (
	ScaleUnity    = 1.0
	ScaleCentiPH  = 100.0
	ScaleCentiDeg = 100.0
	ScaleCentiPct = 100.0
	ScaleDeciHPa  = 10.0
	ScaleDeciCm   = 10.0
)

// Field describes one slot of the wire payload.
type Field struct {
	Key    string
	Desc   string
	Tag    Tag // contributing sensor variant, empty for node-level bytes
	Offset int
	Width  int
	Scale  float64
}

// Layout is the ordered wire format for one enabled-sensor configuration.
// The encoder and the mirror decoder generator are both derived from the
// same Layout instance, so they cannot drift apart structurally.
type Layout struct {
	fields []Field
	size   int
}

type fieldSpec struct {
	key   string
	desc  string
	width int
	scale float64
	// providers in priority order; the field is present when any is enabled
	providers []Tag
}

// canonicalFields is the wire order of every field the node can report.
// The battery byte always leads; a reserved byte pads odd totals.
var canonicalFields = []fieldSpec{
	{FieldPH, "pH (x100)", 2, ScaleCentiPH, []Tag{TagPH}},
	{FieldTempExt, "External temperature (°C x100)", 2, ScaleCentiDeg, []Tag{TagBME280, TagDHT22, TagDHT11}},
	{FieldTempWater, "Water temperature 1m (°C x100)", 2, ScaleCentiDeg, []Tag{TagDS18B20}},
	{FieldHumidity, "Relative humidity (% x100)", 2, ScaleCentiPct, []Tag{TagBME280, TagDHT22, TagDHT11}},
	{FieldPressure, "Pressure (hPa x10)", 2, ScaleDeciHPa, []Tag{TagBME280}},
	{FieldDistance, "Distance (cm x10)", 2, ScaleDeciCm, []Tag{TagHCSR04}},
}

// For derives the payload layout for a set of enabled sensor tags.
func For(tags []Tag) Layout {
	enabled := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		enabled[t] = true
	}

	l := Layout{}
	l.add(Field{Key: FieldBattery, Desc: "Battery (%)", Width: 1, Scale: ScaleUnity})

	for _, spec := range canonicalFields {
		for _, p := range spec.providers {
			if enabled[p] {
				l.add(Field{
					Key:   spec.key,
					Desc:  spec.desc,
					Tag:   p,
					Width: spec.width,
					Scale: spec.scale,
				})

				break
			}
		}
	}

	// Pad odd totals so the payload length stays word-aligned on the radio.
	if l.size%2 != 0 {
		l.add(Field{Key: FieldReserved, Desc: "Reserved", Width: 1, Scale: ScaleUnity})
	}

	return l
}

func (l *Layout) add(f Field) {
	f.Offset = l.size
	l.fields = append(l.fields, f)
	l.size += f.Width
}

// Fields returns the layout's fields in wire order.
func (l Layout) Fields() []Field {
	return l.fields
}

// Size returns the total payload length in bytes.
func (l Layout) Size() int {
	return l.size
}

// Offset returns the wire offset of the given field key.
func (l Layout) Offset(key string) (int, bool) {
	for _, f := range l.fields {
		if f.Key == key {
			return f.Offset, true
		}
	}

	return 0, false
}

// FieldFor returns the field with the given key only when it is owned by
// the given variant, so overlapping providers never write each other's slots.
func (l Layout) FieldFor(key string, tag Tag) (Field, bool) {
	for _, f := range l.fields {
		if f.Key == key && f.Tag == tag {
			return f, true
		}
	}

	return Field{}, false
}

// WidthOf returns the number of payload bytes contributed by a variant.
func (l Layout) WidthOf(tag Tag) int {
	width := 0
	for _, f := range l.fields {
		if f.Tag == tag {
			width += f.Width
		}
	}

	return width
}

// NewBuffer allocates a wire buffer sized for this layout.
func (l Layout) NewBuffer() *Buffer {
	return NewBuffer(l.size)
}
