package frontend

import (
	"fmt"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// DefaultChain 是未命名 content 段落与模板默认绑定的内容链。
const DefaultChain = "body"

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"B5":     {176, 250},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	var width, height float64
	if strings.EqualFold(spec.Size, "custom") {
		attrs := pairs(spec.Params)
		width = layout.ParseLength(attrs["width"])
		height = layout.ParseLength(attrs["height"])
		if width <= 0 || height <= 0 {
			return 0, 0, fmt.Errorf("custom 纸张需要 width 与 height")
		}
	} else {
		base, ok := pagePresets[strings.ToUpper(spec.Size)]
		if !ok {
			return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
		}
		width, height = base[0], base[1]
	}
	for _, token := range spec.Params {
		if token.Value == "landscape" && height > width {
			width, height = height, width
		}
	}
	return width, height, nil
}

// pairs 收集 key value 形式的参数，跳过 portrait 之类的单独关键字。
func pairs(params []*dsl.Lexeme) map[string]string {
	out := map[string]string{}
	for i := 0; i+1 < len(params); i++ {
		if params[i].Type == "Ident" && isNumber(params[i+1].Value) {
			out[params[i].Value] = params[i+1].Value
			i++
		}
	}
	return out
}

// resolveMargin 读取 margin 之后最多 4 个长度，语义同 CSS：
// 1 个值四边相同；2 个值为上下/左右；3 个值为上/左右/下；4 个值为上右下左。
func resolveMargin(params []*dsl.Lexeme) layout.Margin {
	margin := layout.Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}
	for i, token := range params {
		if token.Value != "margin" {
			continue
		}
		var vals []float64
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			if !isNumber(params[j].Value) {
				break
			}
			vals = append(vals, layout.ParseLength(params[j].Value))
		}
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = layout.Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

// buildTemplates 把 template 段落转成 layout.Templates。名为 first 的模板
// 用于第一页，其余的用于后续页面；没有任何模板时使用 A4 单栏。
func (b *builder) buildTemplates(doc *dsl.Document) (layout.Templates, error) {
	var tpls layout.Templates
	for _, section := range doc.Sections {
		ts := section.Template
		if ts == nil {
			continue
		}
		tpl, err := b.buildTemplate(ts)
		if err != nil {
			return tpls, fmt.Errorf("模板 %s: %w", ts.Name, err)
		}
		if ts.Name == "first" {
			if tpls.First != nil {
				return tpls, fmt.Errorf("第 %d 行：重复的模板 first", ts.Pos.Line)
			}
			tpls.First = tpl
			continue
		}
		if tpls.Other != nil {
			return tpls, fmt.Errorf("第 %d 行：只能定义一个后续页模板，已有 %s", ts.Pos.Line, tpls.Other.Name)
		}
		tpls.Other = tpl
	}
	if tpls.First == nil && tpls.Other == nil {
		tpls.First = &layout.PageTemplate{
			Name:        "default",
			Width:       210,
			Height:      297,
			Margin:      layout.Margin{Top: 20, Right: 20, Bottom: 20, Left: 20},
			Chain:       DefaultChain,
			FootnoteGap: 4,
			FloatGap:    4,
		}
	}
	return tpls, nil
}

func (b *builder) buildTemplate(ts *dsl.TemplateSection) (*layout.PageTemplate, error) {
	width, height, err := resolvePageSize(ts.Spec)
	if err != nil {
		return nil, err
	}
	tpl := &layout.PageTemplate{
		Name:        ts.Name,
		Width:       width,
		Height:      height,
		Margin:      resolveMargin(ts.Spec.Params),
		Chain:       DefaultChain,
		FootnoteGap: 4,
		FloatGap:    4,
	}
	for key, value := range ts.Block.Assignments() {
		v := valueToString(value)
		switch key {
		case "columns":
			tpl.Columns = parseInt(v, 1)
		case "column-gap":
			tpl.ColumnGap = layout.ParseLength(v)
		case "chain":
			tpl.Chain = v
		case "title":
			tpl.TitleChain = v
		case "floats":
			tpl.FloatPlacement = layout.FloatPlacement(strings.ToLower(v))
		case "float-gap":
			tpl.FloatGap = layout.ParseLength(v)
		case "footnote-gap":
			tpl.FootnoteGap = layout.ParseLength(v)
		case "note-spacing":
			tpl.NoteSpacing = layout.ParseLength(v)
		case "float-spacing":
			tpl.FloatSpacing = layout.ParseLength(v)
		default:
			return nil, fmt.Errorf("未知的模板属性 %s", key)
		}
	}
	if tpl.Columns > 1 && tpl.ColumnGap == 0 {
		tpl.ColumnGap = 6
	}

	b.static = true
	defer func() { b.static = false }()
	for _, cmd := range ts.Block.Commands() {
		items, err := b.flowables(cmd.Block, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Name, err)
		}
		h := layout.ParseLength(cmd.Arg(0))
		if h <= 0 {
			h = 10
		}
		switch cmd.Name {
		case "header":
			tpl.Header, tpl.HeaderHeight = items, h
		case "footer":
			tpl.Footer, tpl.FooterHeight = items, h
		default:
			return nil, fmt.Errorf("第 %d 行：模板中未知的语句 %s", cmd.Pos.Line, cmd.Name)
		}
	}
	return tpl, nil
}
