package layout

import "fmt"

const cellPadding = 1.2

// TableRowSpec is one source row. Leading header rows repeat on every
// continuation fragment.
type TableRowSpec struct {
	Header bool
	Cells  []string
}

// Table splits between rows; columns share the width equally.
type Table struct {
	id    string
	style string
	rows  []TableRowSpec
}

type tableState struct {
	row  int
	part int
}

func NewTable(id, style string, rows ...TableRowSpec) *Table {
	return &Table{id: id, style: style, rows: rows}
}

func (t *Table) AddRow(header bool, cells ...string) *Table {
	t.rows = append(t.rows, TableRowSpec{Header: header, Cells: cells})
	return t
}

func (t *Table) ID() string { return t.id }
func (t *Table) Kind() Kind { return KindTable }
func (t *Table) Style() string { return t.style }
func (t *Table) Splittable() bool { return true }

func (t *Table) headerCount() int {
	n := 0
	for n < len(t.rows) && t.rows[n].Header {
		n++
	}
	return n
}

func (t *Table) columns() int {
	cols := 0
	for _, r := range t.rows {
		cols = max(cols, len(r.Cells))
	}
	return max(cols, 1)
}

// measureRow lays out one row at relative y.
func (t *Table) measureRow(ctx *FlowContext, spec TableRowSpec, colW, y float64) (TableRow, error) {
	style := t.style
	if spec.Header {
		style = ctx.Styles.String(t.style, KindTable, "header-style", t.style)
	}
	ts := ctx.textStyle(style, KindTable)
	pad := ctx.Styles.Length(t.style, KindTable, "cell-padding", cellPadding)
	row := TableRow{Y: y, IsHeader: spec.Header}
	maxHeight := 0.0
	for i, raw := range spec.Cells {
		text, _ := ctx.expand(raw)
		cw := colW - 2*pad
		lines, err := ctx.layoutLines(text, cw, ts)
		if err != nil {
			return TableRow{}, fmt.Errorf("表格 %s 单元格排版失败：%w", t.id, err)
		}
		h := linesHeight(lines)
		maxHeight = max(maxHeight, h)
		row.Cells = append(row.Cells, TableCell{Text: TextBox{
			Content:    text,
			X:          float64(i)*colW + pad,
			Y:          y + pad,
			Width:      cw,
			LineHeight: ts.lineHeight,
			Font:       ts.font,
			FontSize:   ts.size,
			Color:      ts.color,
			Lines:      lines,
			Height:     h,
			Align:      ts.align,
			Wrap:       ts.wrap,
		}})
	}
	row.Height = maxHeight + 2*pad
	return row, nil
}

func (t *Table) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	cols := t.columns()
	colW := width / float64(cols)
	headers := t.headerCount()
	start, part := headers, 0
	if st, ok := state.(tableState); ok {
		start, part = st.row, st.part
	}
	if len(t.rows) == 0 {
		return placedFragment(Fragment{Flowable: t.id, Kind: KindTable, Width: width}, nil), nil
	}

	var rows []TableRow
	y := 0.0
	for i := 0; i < headers; i++ {
		row, err := t.measureRow(ctx, t.rows[i], colW, y)
		if err != nil {
			return Placement{}, err
		}
		rows = append(rows, row)
		y += row.Height
	}
	next := start
	for next < len(t.rows) {
		row, err := t.measureRow(ctx, t.rows[next], colW, y)
		if err != nil {
			return Placement{}, err
		}
		if y+row.Height > avail+epsilon {
			if next > start || !force {
				break
			}
		}
		rows = append(rows, row)
		y += row.Height
		next++
	}
	body := next - start
	if body == 0 && start < len(t.rows) {
		return Placement{}, nil
	}
	if y > avail+epsilon && !force {
		return Placement{}, nil
	}

	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = colW
	}
	border, _ := ctx.Styles.Get(t.style, KindTable, "border-color")
	borderColor := Color{R: 200, G: 200, B: 200}
	if border != "" {
		borderColor = ResolveColor(border, ctx.Resources)
	}
	frag := Fragment{
		Flowable: t.id,
		Kind:     KindTable,
		Part:     part,
		Width:    width,
		Height:   y,
		Overflow: y > avail+epsilon,
		Table:    &TableFragment{ColumnWidths: widths, Rows: rows, BorderColor: borderColor},
	}
	var rest State
	if next < len(t.rows) {
		rest = tableState{row: next, part: part + 1}
	}
	return placedFragment(frag, rest), nil
}
