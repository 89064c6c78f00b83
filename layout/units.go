package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe lengths and the rectangle type used for page
// geometry. Every layout quantity is kept in millimetres; conversion happens
// when values enter (DSL strings, templates) or leave (renderer font sizes).

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 25.4 / 72
	MmToPt = 72 / 25.4
)

// epsilon absorbs floating point noise when comparing heights.
const epsilon = 1e-6

// String returns the short suffix of a Unit ("mm", "pt", ...).
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// MM, PT and IN build lengths in the common units.
func MM(v float64) Length { return Length{Value: v, Unit: UnitMM} }
func PT(v float64) Length { return Length{Value: v, Unit: UnitPT} }
func IN(v float64) Length { return Length{Value: v, Unit: UnitIN} }

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimetres. Unit-less values are taken as mm.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// ToPT converts the length to points.
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.ToMM() * MmToPt
}

// Add returns l+o expressed in l's unit.
func (l Length) Add(o Length) Length {
	return l.fromMM(l.ToMM() + o.ToMM())
}

// Sub returns l-o expressed in l's unit.
func (l Length) Sub(o Length) Length {
	return l.fromMM(l.ToMM() - o.ToMM())
}

// Scale multiplies the length by f keeping its unit.
func (l Length) Scale(f float64) Length {
	return Length{Value: l.Value * f, Unit: l.Unit}
}

func (l Length) fromMM(mm float64) Length {
	switch l.Unit {
	case UnitCM:
		return Length{Value: mm / 10, Unit: UnitCM}
	case UnitIN:
		return Length{Value: mm / 25.4, Unit: UnitIN}
	case UnitPT:
		return Length{Value: mm * MmToPt, Unit: UnitPT}
	default:
		return Length{Value: mm, Unit: l.Unit}
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// ParseRawLengthStr parses a length string preserving its unit.
// Invalid input yields the zero Length.
func ParseRawLengthStr(value string) Length {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}
	}
	return Length{Value: f, Unit: unit}
}

// ParseLength parses a length string and returns millimetres; numbers
// without a unit are millimetres.
func ParseLength(value string) float64 {
	return ParseRawLengthStr(value).ToMM()
}

// ParseDimension is ParseLength with support for percentages of reference.
func ParseDimension(value string, reference float64) float64 {
	v := strings.TrimSpace(value)
	if strings.HasSuffix(v, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 0
		}
		return reference * f / 100
	}
	return ParseLength(v)
}

// IsLength reports whether value parses as a number with an optional unit.
func IsLength(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, suf := range []string{"mm", "cm", "in", "pt", "%"} {
		v = strings.TrimSuffix(v, suf)
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec is either a factor of the font size (1.2x) or an absolute length (14pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight reads "1.2x" or an absolute length. ok is false for
// empty or malformed values.
func ParseLineHeight(value string) (LineHeightSpec, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return LineHeightSpec{}, false
	}
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 {
			return LineHeightSpec{}, false
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, true
	}
	l := ParseRawLengthStr(v)
	if l.Value <= 0 {
		return LineHeightSpec{}, false
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, true
}

// Resolve computes the absolute line height in mm for a font size in mm.
func (s LineHeightSpec) Resolve(fontSizeMM float64) float64 {
	switch s.Kind {
	case LineHeightAbsolute:
		return s.Len.ToMM()
	default:
		if s.Factor <= 0 {
			return fontSizeMM * 1.4
		}
		return fontSizeMM * s.Factor
	}
}

// Rect is an axis-aligned rectangle in page coordinates (mm, y downward).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether o lies inside r (with a small tolerance).
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X-epsilon && o.Y >= r.Y-epsilon &&
		o.Right() <= r.Right()+epsilon && o.Bottom() <= r.Bottom()+epsilon
}

// Inset shrinks the rectangle by the margin on every side.
func (r Rect) Inset(m Margin) Rect {
	return Rect{
		X:      r.X + m.Left,
		Y:      r.Y + m.Top,
		Width:  r.Width - m.Left - m.Right,
		Height: r.Height - m.Top - m.Bottom,
	}
}
