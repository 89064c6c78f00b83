package layout

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Marker ties a footnote to the byte offset of its reference mark in a
// paragraph's raw text.
type Marker struct {
	Offset int
	Note   *Footnote
}

// Paragraph is wrapped text. It splits between lines unless it is a
// heading, which is atomic and keeps with the next flowable.
type Paragraph struct {
	id      string
	style   string
	kind    Kind
	text    string
	markers []Marker
	keep    bool
}

// paragraphState is the byte offset into the raw text where the unplaced
// text starts. Continuations wrap only that remainder, so a piece may be
// laid out at a different width than the one before it.
type paragraphState struct {
	offset int
	part   int
}

func NewParagraph(id, style, text string) *Paragraph {
	return &Paragraph{id: id, style: style, kind: KindParagraph, text: text}
}

func NewHeading(id, style, text string) *Paragraph {
	return &Paragraph{id: id, style: style, kind: KindHeading, text: text, keep: true}
}

// Mark records a footnote reference at offset. Markers stay sorted.
func (p *Paragraph) Mark(offset int, n *Footnote) *Paragraph {
	p.markers = append(p.markers, Marker{Offset: offset, Note: n})
	sort.SliceStable(p.markers, func(i, j int) bool { return p.markers[i].Offset < p.markers[j].Offset })
	return p
}

func (p *Paragraph) ID() string { return p.id }
func (p *Paragraph) Kind() Kind { return p.kind }
func (p *Paragraph) Style() string { return p.style }
func (p *Paragraph) Text() string { return p.text }
func (p *Paragraph) Markers() []Marker { return p.markers }
func (p *Paragraph) Splittable() bool { return p.kind != KindHeading }
func (p *Paragraph) KeepWithNext() bool { return p.keep }
func (p *Paragraph) SetKeepWithNext(b bool) { p.keep = b }

func (p *Paragraph) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	ts := ctx.textStyle(p.style, p.kind)
	inner := width - ts.indentLeft - ts.indentRight
	if inner <= 0 {
		inner = width
		ts.indentLeft = 0
	}
	offset, part := 0, 0
	if st, ok := state.(paragraphState); ok {
		offset, part = min(st.offset, len(p.text)), st.part
	}
	raw := p.text[offset:]
	text, pending := ctx.expand(raw)
	lines, err := ctx.layoutLines(text, inner, ts)
	if err != nil {
		return Placement{}, fmt.Errorf("段落 %s 排版失败：%w", p.id, err)
	}

	n, h := fitLines(lines, avail)
	if !p.Splittable() && n < len(lines) {
		n, h = 0, 0
	}
	overflow := false
	if n == 0 {
		if !force {
			return Placement{}, nil
		}
		n = 1
		if !p.Splittable() {
			n = len(lines)
		}
		h = linesHeight(lines[:n])
		overflow = h > avail+epsilon
	}

	// end is where the next piece starts in raw
	end := len(raw)
	if n < len(lines) {
		end = ctx.rawOffset(raw, consumed(text, lines[:n]))
		if end <= 0 {
			_, end = utf8.DecodeRuneInString(raw)
		}
	}

	placed := append([]TextLine(nil), lines[:n]...)
	placed[0].GapBefore = 0
	frag := Fragment{
		Flowable: p.id,
		Kind:     p.kind,
		Part:     part,
		X:        ts.indentLeft,
		Width:    inner,
		Height:   h,
		Overflow: overflow,
		Text: &TextFragment{
			Lines:      placed,
			Offset:     offset,
			Style:      p.style,
			Kind:       p.kind,
			Font:       ts.font,
			FontSize:   ts.size,
			LineHeight: ts.lineHeight,
			Color:      ts.color,
			Align:      ts.align,
			Wrap:       ts.wrap,
			Source:     raw[:end],
			Pending:    pending,
		},
	}
	var rest State
	hi := len(p.text) + 1
	if end < len(raw) {
		rest = paragraphState{offset: offset + end, part: part + 1}
		hi = offset + end
	}
	pl := placedFragment(frag, rest)
	pl.Notes = p.notesIn(offset, hi)
	return pl, nil
}

// notesIn returns the notes whose markers fall in raw text [lo, hi).
func (p *Paragraph) notesIn(lo, hi int) []*Footnote {
	var notes []*Footnote
	for _, m := range p.markers {
		off := min(m.Offset, len(p.text))
		if off >= lo && off < hi {
			notes = append(notes, m.Note)
		}
	}
	return notes
}

// consumed returns the byte offset in text just past lines. The whitespace
// a typesetter drops at a soft break is skipped, and so is at most one
// explicit newline. Runes a typesetter adds, such as hyphens, match nothing
// and are ignored.
func consumed(text string, lines []TextLine) int {
	pos := 0
	for _, l := range lines {
		for _, r := range l.Content {
			if unicode.IsSpace(r) {
				continue
			}
			q := pos
			for q < len(text) {
				c, size := utf8.DecodeRuneInString(text[q:])
				if !unicode.IsSpace(c) {
					break
				}
				q += size
			}
			if c, size := utf8.DecodeRuneInString(text[q:]); q < len(text) && c == r {
				pos = q + size
			}
		}
		for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\r') {
			pos++
		}
		if pos < len(text) && text[pos] == '\n' {
			pos++
		}
	}
	return pos
}

// fitLines counts the leading lines that fit in avail.
func fitLines(lines []TextLine, avail float64) (int, float64) {
	h := 0.0
	n := 0
	for i, l := range lines {
		add := l.Height
		if i > 0 {
			add += l.GapBefore
		}
		if h+add > avail+epsilon {
			break
		}
		h += add
		n++
	}
	return n, h
}
