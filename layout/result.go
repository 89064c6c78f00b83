package layout

import "strings"

var outlineColors = map[RegionKind]Color{
	RegionHeader:    {R: 120, G: 120, B: 120},
	RegionFooter:    {R: 120, G: 120, B: 120},
	RegionTitle:     {R: 15, G: 98, B: 254},
	RegionColumn:    {R: 36, G: 161, B: 72},
	RegionFloats:    {R: 218, G: 30, B: 40},
	RegionFootnotes: {R: 138, G: 63, B: 252},
}

// result converts the page arenas into absolute boxes for the renderers.
func (d *Document) result() *Result {
	res := &Result{
		Resources: d.resources,
		Meta:      d.meta,
		Warnings:  d.warnings,
	}
	res.Resources.Styles = d.styles.Table()
	for _, p := range d.pages {
		res.Pages = append(res.Pages, d.renderPage(p))
	}
	return res
}

func (d *Document) renderPage(p *Sheet) Page {
	tpl := p.Template
	out := Page{
		Number: p.Number,
		Width:  tpl.Width,
		Height: tpl.Height,
		Margin: tpl.Margin,
	}
	for i := range p.containers {
		c := &p.containers[i]
		r := p.Rect(c.ID)
		region := Region{
			Name:      c.Name,
			Kind:      c.Kind.String(),
			Chain:     c.Chain,
			Rect:      r,
			Used:      c.used,
			Capacity:  p.Capacity(c.ID),
			Overflow:  c.Overflow,
			Fragments: []FragmentInfo{},
		}
		for _, f := range c.fragments {
			emitFragment(&out, f, r.X, r.Y)
			region.Fragments = append(region.Fragments, FragmentInfo{
				Flowable: f.Flowable,
				Kind:     f.Kind.String(),
				Part:     f.Part,
				Final:    f.Final,
				Y:        f.Y,
				Height:   f.Height,
				Overflow: f.Overflow,
			})
		}
		out.Regions = append(out.Regions, region)
		if d.opts.Outline && c.Kind != RegionBody {
			out.Boxes = append(out.Boxes, Box{Rect: r, StrokeColor: outlineColors[c.Kind], StrokeWidth: 0.2})
		}
	}
	if fn := &p.containers[p.notes]; !fn.Empty() {
		r := p.Rect(p.notes)
		y := r.Y - tpl.FootnoteGap/2
		color, _ := d.styles.Get("", KindFootnote, "rule-color")
		out.Lines = append(out.Lines, Line{
			X1: r.X, Y1: y, X2: r.X + r.Width/3, Y2: y,
			Color: ResolveColor(color, d.resources),
			Width: d.styles.Length("", KindFootnote, "rule-width", 0.25),
		})
	}
	return out
}

// emitFragment appends the drawable parts of a fragment tree; ox and oy
// locate the fragment's parent.
func emitFragment(out *Page, f Fragment, ox, oy float64) {
	x, y := ox+f.X, oy+f.Y
	switch {
	case f.Text != nil:
		t := f.Text
		contents := make([]string, 0, len(t.Lines))
		for _, l := range t.Lines {
			contents = append(contents, l.Content)
		}
		out.Texts = append(out.Texts, TextBox{
			Content:    strings.Join(contents, " "),
			X:          x,
			Y:          y,
			Width:      f.Width,
			LineHeight: t.LineHeight,
			Font:       t.Font,
			FontSize:   t.FontSize,
			Color:      t.Color,
			Lines:      t.Lines,
			Height:     f.Height,
			Align:      t.Align,
			Wrap:       t.Wrap,
		})
	case f.Image != nil:
		out.Images = append(out.Images, ImageBox{
			Path:    f.Image.Path,
			X:       x,
			Y:       y,
			Width:   f.Width,
			Height:  f.Height,
			Fit:     f.Image.Fit,
			Opacity: f.Image.Opacity,
		})
	case f.Table != nil:
		tb := TableBox{
			X:            x,
			Y:            y,
			Width:        f.Width,
			ColumnWidths: f.Table.ColumnWidths,
			BorderColor:  f.Table.BorderColor,
		}
		for _, row := range f.Table.Rows {
			row.Y += y
			cells := make([]TableCell, len(row.Cells))
			for i, cell := range row.Cells {
				cell.Text.X += x
				cell.Text.Y += y
				cells[i] = cell
			}
			row.Cells = cells
			tb.Rows = append(tb.Rows, row)
		}
		out.Tables = append(out.Tables, tb)
	case f.Rule != nil && f.Rule.Stroke:
		mid := y + f.Height/2
		out.Lines = append(out.Lines, Line{
			X1: x, Y1: mid, X2: x + f.Width, Y2: mid,
			Color: f.Rule.Color, Width: f.Rule.Thickness,
		})
	}
	for _, c := range f.Children {
		emitFragment(out, c, x, y)
	}
}
