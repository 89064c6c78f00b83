package layout

import "fmt"

// unbounded is the height used to measure float bodies in one piece.
const unbounded = 1e9

// Float is a figure or table that leaves the body flow. In the chain it
// is a zero-height anchor; its body is placed in the page's float space.
type Float struct {
	id      string
	style   string
	content Flowable
	caption Flowable
}

func NewFloat(id, style string, content, caption Flowable) *Float {
	return &Float{id: id, style: style, content: content, caption: caption}
}

func (f *Float) ID() string { return f.id }
func (f *Float) Kind() Kind { return KindFloat }
func (f *Float) Style() string { return f.style }
func (f *Float) Splittable() bool { return false }

// Flow places the anchor. It takes no height and fits anywhere.
func (f *Float) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	if avail < -epsilon && !force {
		return Placement{}, nil
	}
	pl := placedFragment(Fragment{Flowable: f.id + "#anchor", Kind: KindFloat, Width: width}, nil)
	pl.Floats = []*Float{f}
	return pl, nil
}

// Body measures the float's content and caption as one atomic block.
// Without force, it reports no progress when the block exceeds avail.
func (f *Float) Body(ctx *FlowContext, width, avail float64, force bool) (Placement, error) {
	g := NewGroup(f.id, f.style)
	if f.content != nil {
		g.Append(f.content)
	}
	if f.caption != nil {
		g.Append(f.caption)
	}
	pl, err := g.Flow(ctx, width, unbounded, nil, true)
	if err != nil {
		return Placement{}, fmt.Errorf("浮动体 %s: %w", f.id, err)
	}
	if pl.Empty() {
		return Placement{}, nil
	}
	frag := pl.Fragment
	frag.Kind = KindFloat
	if frag.Height > avail+epsilon {
		if !force {
			return Placement{}, nil
		}
		frag.Overflow = true
	}
	out := placedFragment(frag, nil)
	out.Notes = pl.Notes
	return out, nil
}

// Footnote is a note body referenced by markers in paragraphs. It is
// placed in the footnote space and may continue on the next page.
type Footnote struct {
	id     string
	style  string
	number string
	body   Flowable
}

type footnoteState struct {
	body State
	part int
}

func NewFootnote(id, style, number string, body Flowable) *Footnote {
	return &Footnote{id: id, style: style, number: number, body: body}
}

func (n *Footnote) ID() string { return n.id }
func (n *Footnote) Kind() Kind { return KindFootnote }
func (n *Footnote) Style() string { return n.style }
func (n *Footnote) Splittable() bool { return n.body == nil || n.body.Splittable() }
func (n *Footnote) Number() string { return n.number }

func (n *Footnote) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	var inner State
	part := 0
	if st, ok := state.(footnoteState); ok {
		inner, part = st.body, st.part
	}
	if n.body == nil {
		return placedFragment(Fragment{Flowable: n.id, Kind: KindFootnote, Width: width}, nil), nil
	}
	indent := 0.0
	if n.number != "" {
		indent = ctx.Styles.Length(n.style, KindFootnote, "label-width", 5)
	}
	pl, err := n.body.Flow(ctx, width-indent, avail, inner, force)
	if err != nil {
		return Placement{}, fmt.Errorf("脚注 %s: %w", n.id, err)
	}
	if pl.Empty() {
		return Placement{}, nil
	}
	body := pl.Fragment
	body.X += indent
	frag := Fragment{
		Flowable: n.id,
		Kind:     KindFootnote,
		Part:     part,
		Width:    width,
		Height:   body.Height,
		Overflow: body.Overflow,
	}
	if part == 0 && n.number != "" {
		ts := ctx.textStyle(n.style, KindFootnote)
		lines, err := ctx.layoutLines(n.number, indent, ts)
		if err != nil {
			return Placement{}, err
		}
		frag.Children = append(frag.Children, Fragment{
			Flowable: n.id,
			Kind:     KindLabel,
			Width:    indent,
			Height:   linesHeight(lines),
			Final:    true,
			Text: &TextFragment{
				Lines:      lines,
				Style:      n.style,
				Kind:       KindFootnote,
				Font:       ts.font,
				FontSize:   ts.size,
				LineHeight: ts.lineHeight,
				Color:      ts.color,
				Source:     n.number,
			},
		})
	}
	frag.Children = append(frag.Children, body)
	var rest State
	if pl.Rest != nil {
		rest = footnoteState{body: pl.Rest, part: part + 1}
	}
	out := placedFragment(frag, rest)
	out.Floats = pl.Floats
	return out, nil
}
