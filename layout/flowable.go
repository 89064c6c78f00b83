package layout

import (
	"math"
	"strings"

	"github.com/ByLCY/quire/binding"
)

// Kind identifies a flowable variant. It doubles as the name of the
// variant's default style.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindList
	KindGroup
	KindImage
	KindTable
	KindRule
	KindFloat
	KindFootnote
	// KindLabel marks decoration fragments (list bullets, note numbers);
	// no flowable has this kind.
	KindLabel
)

var kindNames = [...]string{
	KindParagraph: "paragraph",
	KindHeading:   "heading",
	KindList:      "list",
	KindGroup:     "group",
	KindImage:     "image",
	KindTable:     "table",
	KindRule:      "rule",
	KindFloat:     "float",
	KindFootnote:  "footnote",
	KindLabel:     "label",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// State is the opaque continuation of a partially placed flowable. Only
// the flowable that produced it knows its shape.
type State any

// Flowable is a unit of content that can be measured and placed into a
// container of a given width.
//
// Flow must not mutate the flowable: it reports what would be placed in
// avail height starting from state. With force set (only ever in an empty
// container) it places at least one unit, flagging the fragment Overflow
// when that unit is taller than avail.
type Flowable interface {
	ID() string
	Kind() Kind
	Style() string
	Splittable() bool
	Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error)
}

// keeper is implemented by flowables that must stay with their successor.
type keeper interface {
	KeepWithNext() bool
}

func keepsWithNext(f Flowable) bool {
	k, ok := f.(keeper)
	return ok && k.KeepWithNext()
}

// Placement is the outcome of one Flow call.
type Placement struct {
	Fragment Fragment
	// Rest is nil when the flowable was placed completely.
	Rest State
	// Notes lists footnotes whose markers fall inside the fragment, in
	// marker order.
	Notes []*Footnote
	// Floats lists float anchors inside the fragment, in document order.
	Floats []*Float

	placed bool
}

func placedFragment(frag Fragment, rest State) Placement {
	frag.Final = rest == nil
	return Placement{Fragment: frag, Rest: rest, placed: true}
}

// Empty reports that nothing fit.
func (p Placement) Empty() bool { return !p.placed }

// Done reports that the flowable was placed completely.
func (p Placement) Done() bool { return p.placed && p.Rest == nil }

// Fragment is the piece of a flowable placed in one container. X and Y
// are relative to the parent fragment, or to the container for top-level
// fragments.
type Fragment struct {
	Flowable string
	Kind     Kind
	// Part counts the pieces of the same flowable, starting at 0.
	Part     int
	Final    bool
	X, Y     float64
	Width    float64
	Height   float64
	Overflow bool

	Text     *TextFragment
	Image    *ImageFragment
	Table    *TableFragment
	Rule     *RuleFragment
	Children []Fragment
}

// TextFragment holds the lines of a paragraph piece together with what is
// needed to wrap them again in the reference pass.
type TextFragment struct {
	Lines      []TextLine
	Offset     int // byte offset of Source in the paragraph's raw text
	Style      string
	Kind       Kind
	Font       string
	FontSize   float64
	LineHeight float64
	Color      Color
	Align      string
	Wrap       string
	// Source is the raw text of this piece with placeholders; Pending
	// marks text that was measured with provisional reference values.
	Source  string
	Pending bool
}

type ImageFragment struct {
	Path    string
	Fit     string
	Opacity float64
}

type TableFragment struct {
	ColumnWidths []float64
	Rows         []TableRow // Y and cell coordinates relative to the fragment
	BorderColor  Color
}

type RuleFragment struct {
	Stroke    bool
	Color     Color
	Thickness float64
}

// Resolver answers ${...} reference keys. ok is false when the value is
// not known yet.
type Resolver interface {
	Resolve(key string) (string, bool)
}

// Provisional is the text measured in place of unresolved references.
const Provisional = "??"

// FlowContext carries everything a Flow call may consult.
type FlowContext struct {
	Typesetter Typesetter
	Styles     Styles
	Resources  ResourceSet
	Refs       Resolver
	// Page is the number of the page being filled.
	Page int
}

// expand substitutes references; pending reports provisional values.
func (ctx *FlowContext) expand(raw string) (text string, pending bool) {
	if !strings.Contains(raw, "${") {
		return raw, false
	}
	text, _ = binding.Expand(raw, func(key string) (string, bool) {
		if ctx.Refs != nil {
			if v, ok := ctx.Refs.Resolve(key); ok {
				return v, true
			}
		}
		pending = true
		return Provisional, true
	})
	return text, pending
}

// rawOffset maps an offset in the expanded form of raw back into raw. An
// offset inside a substituted value maps past its placeholder.
func (ctx *FlowContext) rawOffset(raw string, off int) int {
	r, e := 0, 0
	for _, span := range binding.Spans(raw) {
		lit := span[0] - r
		if off <= e+lit {
			return r + off - e
		}
		e += lit
		v, _ := ctx.expand(raw[span[0]:span[1]])
		if off < e+len(v) {
			return span[1]
		}
		e += len(v)
		r = span[1]
	}
	return min(r+off-e, len(raw))
}

func (ctx *FlowContext) spaceAbove(f Flowable) float64 {
	return ctx.Styles.Length(f.Style(), f.Kind(), "space-above", 0)
}

func (ctx *FlowContext) spaceBelow(f Flowable) float64 {
	return ctx.Styles.Length(f.Style(), f.Kind(), "space-below", 0)
}

// textStyle is the resolved typographic setup of a text flowable.
type textStyle struct {
	font        string
	fontRes     FontResource
	size        float64 // mm
	lineHeight  float64 // mm
	color       Color
	align       string
	wrap        string
	indentLeft  float64
	indentRight float64
}

func (ctx *FlowContext) textStyle(style string, kind Kind) textStyle {
	st := ctx.Styles
	ts := textStyle{
		font:        st.String(style, kind, "font", "Body"),
		size:        st.Length(style, kind, "size", 12*PtToMm),
		wrap:        st.String(style, kind, "wrap", ""),
		indentLeft:  st.Length(style, kind, "indent-left", 0),
		indentRight: st.Length(style, kind, "indent-right", 0),
	}
	if ts.size <= 0 {
		ts.size = 12 * PtToMm
	}
	ts.lineHeight = ts.size * 1.4
	if v, ok := st.Get(style, kind, "line-height"); ok {
		if spec, ok := ParseLineHeight(v); ok {
			ts.lineHeight = spec.Resolve(ts.size)
		}
	}
	v, _ := st.Get(style, kind, "color")
	ts.color = ResolveColor(v, ctx.Resources)
	switch a := strings.ToLower(st.String(style, kind, "align", "")); a {
	case "start":
		ts.align = "left"
	case "end":
		ts.align = "right"
	case "left", "center", "right":
		ts.align = a
	}
	ts.fontRes = ctx.font(ts.font)
	return ts
}

func (ctx *FlowContext) font(name string) FontResource {
	if f, ok := ctx.Resources.Fonts[name]; ok {
		return f
	}
	if f, ok := ctx.Resources.Fonts["Body"]; ok {
		return f
	}
	return FontResource{Name: name, Family: name}
}

// layoutLines wraps text through the typesetter. Without one, text is
// split on newlines only.
func (ctx *FlowContext) layoutLines(content string, width float64, ts textStyle) ([]TextLine, error) {
	var lines []TextLine
	if ctx.Typesetter == nil {
		leading := math.Max(ts.lineHeight-ts.size, 0)
		for _, l := range strings.Split(content, "\n") {
			lines = append(lines, TextLine{Content: l, Width: width, Height: ts.size, GapBefore: leading})
		}
	} else {
		var err error
		lines, err = ctx.Typesetter.LayoutLines(content, width, ts.fontRes, ts.size, ts.lineHeight, ts.wrap)
		if err != nil {
			return nil, err
		}
	}
	if len(lines) == 0 {
		lines = []TextLine{{Content: "", Width: width, Height: ts.size}}
	}
	defaultLeading := math.Max(ts.lineHeight-ts.size, 0)
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = ts.size
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = defaultLeading
		}
	}
	return lines, nil
}

// linesHeight sums line heights plus the gaps between them.
func linesHeight(lines []TextLine) float64 {
	h := 0.0
	for i, l := range lines {
		if i > 0 {
			h += l.GapBefore
		}
		h += l.Height
	}
	return h
}
