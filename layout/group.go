package layout

import (
	"fmt"
	"strconv"
)

// Group is an ordered run of children, such as a section. A list is a
// group whose items carry a label in a hanging indent.
type Group struct {
	id       string
	style    string
	kind     Kind
	children []Flowable
	ordered  bool
	start    int
}

type groupState struct {
	index int
	child State
	part  int
}

func NewGroup(id, style string, children ...Flowable) *Group {
	return &Group{id: id, style: style, kind: KindGroup, children: children}
}

// NewList builds a list. Ordered lists number their items from 1.
func NewList(id, style string, ordered bool, items ...Flowable) *Group {
	return &Group{id: id, style: style, kind: KindList, children: items, ordered: ordered, start: 1}
}

func (g *Group) Append(children ...Flowable) *Group {
	g.children = append(g.children, children...)
	return g
}

// StartAt changes the number of the first item of an ordered list.
func (g *Group) StartAt(n int) *Group {
	g.start = n
	return g
}

func (g *Group) ID() string { return g.id }
func (g *Group) Kind() Kind { return g.kind }
func (g *Group) Style() string { return g.style }
func (g *Group) Splittable() bool { return true }
func (g *Group) Children() []Flowable { return g.children }

func (g *Group) label(ctx *FlowContext, i int) string {
	if g.ordered {
		return strconv.Itoa(g.start+i) + "."
	}
	return ctx.Styles.String(g.style, KindList, "bullet", "•")
}

func (g *Group) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	idx, child, part := 0, State(nil), 0
	if st, ok := state.(groupState); ok {
		idx, child, part = st.index, st.child, st.part
	}
	if len(g.children) == 0 {
		return placedFragment(Fragment{Flowable: g.id, Kind: g.kind, Width: width}, nil), nil
	}
	indent := 0.0
	if g.kind == KindList {
		indent = ctx.Styles.Length(g.style, KindList, "item-indent", 6)
	}
	cw := width - indent

	frag := Fragment{Flowable: g.id, Kind: g.kind, Part: part, Width: width}
	var notes []*Footnote
	var floats []*Float
	used, prevBelow := 0.0, 0.0
	placedAny := false
	for idx < len(g.children) {
		c := g.children[idx]
		sp := 0.0
		if placedAny && child == nil {
			sp = max(prevBelow, ctx.spaceAbove(c))
		}
		room := avail - used - sp
		pl, err := c.Flow(ctx, cw, room, child, force && !placedAny)
		if err != nil {
			return Placement{}, fmt.Errorf("%s %s: %w", g.kind, g.id, err)
		}
		if pl.Empty() {
			break
		}
		if pl.Done() && keepsWithNext(c) && idx+1 < len(g.children) && (placedAny || !force) {
			nxt := g.children[idx+1]
			gap := max(ctx.spaceBelow(c), ctx.spaceAbove(nxt))
			npl, err := nxt.Flow(ctx, cw, room-pl.Fragment.Height-gap, nil, false)
			if err != nil {
				return Placement{}, err
			}
			if npl.Empty() {
				break
			}
		}

		f := pl.Fragment
		f.X += indent
		f.Y = used + sp
		if g.kind == KindList && child == nil {
			lf, err := g.labelFragment(ctx, idx, indent, f.Y, c.ID())
			if err != nil {
				return Placement{}, err
			}
			frag.Children = append(frag.Children, lf)
		}
		frag.Children = append(frag.Children, f)
		frag.Overflow = frag.Overflow || f.Overflow
		used = f.Y + f.Height
		notes = append(notes, pl.Notes...)
		floats = append(floats, pl.Floats...)
		placedAny = true
		if pl.Rest != nil {
			child = pl.Rest
			break
		}
		prevBelow = ctx.spaceBelow(c)
		idx++
		child = nil
	}
	if !placedAny {
		return Placement{}, nil
	}
	frag.Height = used
	var rest State
	if idx < len(g.children) {
		rest = groupState{index: idx, child: child, part: part + 1}
	}
	pl := placedFragment(frag, rest)
	pl.Notes = notes
	pl.Floats = floats
	return pl, nil
}

func (g *Group) labelFragment(ctx *FlowContext, i int, indent, y float64, item string) (Fragment, error) {
	ts := ctx.textStyle(g.style, KindList)
	text := g.label(ctx, i)
	lines, err := ctx.layoutLines(text, max(indent, ts.size), ts)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{
		Flowable: item,
		Kind:     KindLabel,
		Y:        y,
		Width:    indent,
		Height:   linesHeight(lines),
		Final:    true,
		Text: &TextFragment{
			Lines:      lines,
			Style:      g.style,
			Kind:       KindList,
			Font:       ts.font,
			FontSize:   ts.size,
			LineHeight: ts.lineHeight,
			Color:      ts.color,
			Source:     text,
		},
	}, nil
}
