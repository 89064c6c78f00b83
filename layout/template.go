package layout

import "fmt"

// FloatPlacement selects where a template's float space sits.
type FloatPlacement string

const (
	FloatsBottom FloatPlacement = "bottom"
	FloatsTop    FloatPlacement = "top"
)

// PageTemplate describes the geometry of a page; all lengths in mm.
type PageTemplate struct {
	Name   string
	Width  float64
	Height float64
	Margin Margin

	// Columns split the content area into equal-width columns bound to
	// Chain; zero means one.
	Columns   int
	ColumnGap float64
	Chain     string
	// TitleChain, when set, fills a title box above the columns.
	TitleChain string

	FloatPlacement FloatPlacement
	// FloatGap separates the float space (and the title box) from the
	// columns once it has content.
	FloatGap float64
	// FootnoteGap separates the footnote space from the content above it;
	// the footnote rule is drawn in the middle of the gap.
	FootnoteGap float64
	// NoteSpacing and FloatSpacing separate consecutive items.
	NoteSpacing  float64
	FloatSpacing float64

	Header       []Flowable
	Footer       []Flowable
	HeaderHeight float64
	FooterHeight float64
}

// Templates holds the template of the first page and of all the others.
// A nil entry falls back to the other one.
type Templates struct {
	First *PageTemplate
	Other *PageTemplate
}

// For returns the template for a 1-based page number.
func (t Templates) For(page int) *PageTemplate {
	if page == 1 && t.First != nil {
		return t.First
	}
	if t.Other != nil {
		return t.Other
	}
	return t.First
}

func (t Templates) all() []*PageTemplate {
	var out []*PageTemplate
	if t.First != nil {
		out = append(out, t.First)
	}
	if t.Other != nil && t.Other != t.First {
		out = append(out, t.Other)
	}
	return out
}

func (t *PageTemplate) columns() int {
	return max(t.Columns, 1)
}

func (t *PageTemplate) floatPlacement() FloatPlacement {
	if t.FloatPlacement == "" {
		return FloatsBottom
	}
	return t.FloatPlacement
}

// Body returns the page area inside the margins.
func (t *PageTemplate) Body() Rect {
	return Rect{Width: t.Width, Height: t.Height}.Inset(t.Margin)
}

// ColumnWidth returns the width of one column.
func (t *PageTemplate) ColumnWidth() float64 {
	n := float64(t.columns())
	return (t.Body().Width - t.ColumnGap*(n-1)) / n
}

// Validate checks the template geometry and its chain bindings.
func (t *PageTemplate) Validate(chains map[string]*Chain) error {
	geom := func(container, format string, args ...any) error {
		return &GeometryError{Template: t.Name, Container: container, Reason: fmt.Sprintf(format, args...)}
	}
	if t.Width <= 0 || t.Height <= 0 {
		return geom("", "页面尺寸必须为正：%.2f x %.2f", t.Width, t.Height)
	}
	m := t.Margin
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return geom("body", "边距不能为负")
	}
	body := t.Body()
	if body.Width <= 0 || body.Height <= 0 {
		return geom("body", "边距超出页面：可用区域 %.2f x %.2f", body.Width, body.Height)
	}
	if t.Columns < 0 {
		return geom("", "列数不能为负：%d", t.Columns)
	}
	if t.ColumnGap < 0 || t.FloatGap < 0 || t.FootnoteGap < 0 || t.NoteSpacing < 0 || t.FloatSpacing < 0 {
		return geom("", "间距不能为负")
	}
	if t.ColumnWidth() <= 0 {
		return geom("column", "列宽不为正：%d 列，列间距 %.2f", t.columns(), t.ColumnGap)
	}
	if t.HeaderHeight < 0 || t.FooterHeight < 0 {
		return geom("", "页眉页脚高度不能为负")
	}
	if t.HeaderHeight+t.FooterHeight >= body.Height {
		return geom("body", "页眉页脚占满了内容区")
	}
	switch t.floatPlacement() {
	case FloatsTop, FloatsBottom:
	default:
		return geom("floats", "未知的浮动体位置 %q", t.FloatPlacement)
	}
	if t.Chain == "" {
		return fmt.Errorf("模板 %s 未绑定内容链: %w", t.Name, ErrConfiguration)
	}
	for _, name := range []string{t.Chain, t.TitleChain} {
		if name == "" {
			continue
		}
		if _, ok := chains[name]; !ok {
			return fmt.Errorf("模板 %s 绑定的内容链 %s: %w: %w", t.Name, name, ErrConfiguration, ErrUnknownChain)
		}
	}
	return nil
}

// Binds reports whether the template flows chain into its columns or its
// title box.
func (t *PageTemplate) Binds(chain string) bool {
	return chain != "" && (t.Chain == chain || t.TitleChain == chain)
}
