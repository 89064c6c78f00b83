package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

const noteRefPrefix = "${note:"

// flowables 把块内的语句依次转换为 flowable。level 是当前章节深度。
func (b *builder) flowables(block *dsl.Block, level int) ([]layout.Flowable, error) {
	if block == nil {
		return nil, nil
	}
	var out []layout.Flowable
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			id, _ := b.claim("", "p", 0)
			p, err := b.paragraph(id, "", layout.KindParagraph, string(stmt.Text.Value), nil)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case stmt.Assignment != nil:
			return nil, fmt.Errorf("内容中不能出现属性 %s", stmt.Assignment.Key)
		case stmt.Command != nil:
			f, err := b.command(stmt.Command, level)
			if err != nil {
				return nil, err
			}
			if f != nil {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (b *builder) command(cmd *dsl.Command, level int) (layout.Flowable, error) {
	switch cmd.Name {
	case "text", "paragraph", "p":
		return b.textCommand(cmd, layout.KindParagraph)
	case "heading":
		return b.textCommand(cmd, layout.KindHeading)
	case "section":
		return b.section(cmd, level)
	case "list":
		return b.list(cmd, level)
	case "group":
		return b.group(cmd, level)
	case "figure":
		return b.figure(cmd)
	case "table":
		return b.tableCommand(cmd)
	case "image":
		return b.image(cmd)
	case "rule":
		return b.rule(cmd)
	case "toc":
		return b.tocCommand(cmd)
	case "footnote":
		// 已在 collectNotes 中登记，由引用处插入。
		return nil, nil
	default:
		return nil, fmt.Errorf("第 %d 行：未知的内容语句 %s", cmd.Pos.Line, cmd.Name)
	}
}

func (b *builder) textCommand(cmd *dsl.Command, kind layout.Kind) (layout.Flowable, error) {
	style, attrs := parseArgs(cmd.Args)
	id, err := b.claim(attrs["id"], "p", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	delete(attrs, "id")
	content := cmd.Text()
	if content == "" {
		return nil, fmt.Errorf("第 %d 行：%s 语句缺少文本内容", cmd.Pos.Line, cmd.Name)
	}
	return b.paragraph(id, b.inlineStyle(id, style, attrs), kind, content, nil)
}

// paragraph 展开数据占位符、插入脚注编号并登记脚注标记。
// lookup 为空时使用文档数据。
func (b *builder) paragraph(id, style string, kind layout.Kind, raw string, lookup binding.Lookup) (*layout.Paragraph, error) {
	if lookup == nil {
		lookup = binding.Data(b.data)
	}
	text, markers, err := b.placeNotes(b.expandWith(raw, lookup))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	var p *layout.Paragraph
	if kind == layout.KindHeading {
		p = layout.NewHeading(id, style, text)
	} else {
		p = layout.NewParagraph(id, style, text)
	}
	for _, m := range markers {
		p.Mark(m.Offset, m.Note)
	}
	return p, nil
}

// placeNotes 把 ${note:ID} 换成上标编号。脚注在第一次被引用时编号，
// 只有第一次引用会登记标记。
func (b *builder) placeNotes(text string) (string, []layout.Marker, error) {
	if !strings.Contains(text, noteRefPrefix) {
		return text, nil, nil
	}
	var out strings.Builder
	var markers []layout.Marker
	rest := text
	for {
		i := strings.Index(rest, noteRefPrefix)
		if i < 0 {
			break
		}
		j := strings.IndexByte(rest[i:], '}')
		if j < 0 {
			break
		}
		id := strings.TrimSpace(rest[i+len(noteRefPrefix) : i+j])
		out.WriteString(rest[:i])
		rest = rest[i+j+1:]
		if b.static {
			return "", nil, fmt.Errorf("页眉页脚中不能引用脚注 %s", id)
		}
		if b.inNote {
			return "", nil, fmt.Errorf("脚注中不能再引用脚注 %s", id)
		}
		note, first, err := b.note(id)
		if err != nil {
			return "", nil, err
		}
		if first {
			markers = append(markers, layout.Marker{Offset: out.Len(), Note: note})
		}
		out.WriteString(superscript(note.Number()))
	}
	out.WriteString(rest)
	return out.String(), markers, nil
}

var superscriptDigits = strings.NewReplacer(
	"0", "⁰", "1", "¹", "2", "²", "3", "³", "4", "⁴",
	"5", "⁵", "6", "⁶", "7", "⁷", "8", "⁸", "9", "⁹",
)

func superscript(s string) string { return superscriptDigits.Replace(s) }

// collectNotes 预先登记所有 footnote 定义，引用可以出现在定义之前。
func (b *builder) collectNotes(block *dsl.Block) error {
	for _, cmd := range block.Commands() {
		if cmd.Name == "footnote" {
			id := cmd.Arg(0)
			if id == "" {
				return fmt.Errorf("第 %d 行：footnote 缺少 ID", cmd.Pos.Line)
			}
			if _, dup := b.noteDefs[id]; dup {
				return fmt.Errorf("第 %d 行：脚注 %s 重复定义", cmd.Pos.Line, id)
			}
			b.noteDefs[id] = cmd
			continue
		}
		if err := b.collectNotes(cmd.Block); err != nil {
			return err
		}
	}
	return nil
}

// note 返回脚注对象；first 表示这是第一次引用。
func (b *builder) note(id string) (*layout.Footnote, bool, error) {
	if n, ok := b.notes[id]; ok {
		return n, false, nil
	}
	def, ok := b.noteDefs[id]
	if !ok {
		return nil, false, fmt.Errorf("脚注 %s 未定义", id)
	}
	b.noteSeq++
	number := strconv.Itoa(b.noteSeq)

	style := def.Arg(1)
	if style == "" {
		style = "footnote"
	}
	b.inNote = true
	defer func() { b.inNote = false }()
	var body layout.Flowable
	if len(def.Block.Commands()) == 0 {
		bodyID, err := b.claim(id+".body", "p", def.Pos.Line)
		if err != nil {
			return nil, false, err
		}
		p, err := b.paragraph(bodyID, style, layout.KindParagraph, def.Text(), nil)
		if err != nil {
			return nil, false, err
		}
		body = p
	} else {
		items, err := b.flowables(def.Block, 0)
		if err != nil {
			return nil, false, fmt.Errorf("脚注 %s: %w", id, err)
		}
		body = layout.NewGroup(id+".body", style, items...)
	}
	n := layout.NewFootnote(id, "footnote", number, body)
	b.notes[id] = n
	return n, true, nil
}

func (b *builder) section(cmd *dsl.Command, level int) (layout.Flowable, error) {
	if b.static {
		return nil, fmt.Errorf("第 %d 行：页眉页脚中不能使用 section", cmd.Pos.Line)
	}
	var id, title string
	numbered := true
	for _, arg := range cmd.Args {
		switch {
		case arg.Type == "String":
			title = arg.Value
		case arg.Value == "unnumbered":
			numbered = false
		case id == "":
			id = arg.Value
		}
	}
	id, err := b.claim(id, "section", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	level = max(level, 1)

	number := ""
	if numbered {
		for len(b.sections) < level {
			b.sections = append(b.sections, 0)
		}
		b.sections = b.sections[:level]
		b.sections[level-1]++
		parts := make([]string, level)
		for i, n := range b.sections {
			parts[i] = strconv.Itoa(n)
		}
		number = strings.Join(parts, ".")
	}
	title = b.expand(title)
	headingText := title
	if number != "" {
		headingText = number + " " + title
	}
	heading, err := b.paragraph(id+".title", "h"+strconv.Itoa(level), layout.KindHeading, headingText, nil)
	if err != nil {
		return nil, err
	}
	b.labels[id] = layout.Label{Number: number, Title: title}
	b.toc = append(b.toc, tocEntry{id: id, number: number, title: title, level: level})

	children, err := b.flowables(cmd.Block, level+1)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", id, err)
	}
	return layout.NewGroup(id, "section", append([]layout.Flowable{heading}, children...)...), nil
}

func (b *builder) list(cmd *dsl.Command, level int) (layout.Flowable, error) {
	var id, style string
	ordered, start := false, 1
	for i := 0; i < len(cmd.Args); i++ {
		next := ""
		if i+1 < len(cmd.Args) {
			next = cmd.Args[i+1].Value
		}
		switch v := cmd.Args[i].Value; v {
		case "ordered":
			ordered = true
		case "bullet", "unordered":
		case "start":
			start = parseInt(next, 1)
			i++
		case "id":
			id = next
			i++
		default:
			style = v
		}
	}
	id, err := b.claim(id, "list", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}

	var items []layout.Flowable
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			switch {
			case stmt.Text != nil:
				itemID, _ := b.claim("", "item", 0)
				p, err := b.paragraph(itemID, "item", layout.KindParagraph, string(stmt.Text.Value), nil)
				if err != nil {
					return nil, err
				}
				items = append(items, p)
			case stmt.Command != nil && stmt.Command.Name == "item":
				item, err := b.item(stmt.Command, level)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			default:
				return nil, fmt.Errorf("list %s 中只能包含 item 或文本", id)
			}
		}
	}
	return layout.NewList(id, style, ordered, items...).StartAt(start), nil
}

func (b *builder) item(cmd *dsl.Command, level int) (layout.Flowable, error) {
	id, err := b.claim(cmd.Arg(0), "item", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	if len(cmd.Block.Commands()) == 0 {
		return b.paragraph(id, "item", layout.KindParagraph, cmd.Text(), nil)
	}
	children, err := b.flowables(cmd.Block, level)
	if err != nil {
		return nil, err
	}
	return layout.NewGroup(id, "item", children...), nil
}

func (b *builder) group(cmd *dsl.Command, level int) (layout.Flowable, error) {
	style, attrs := parseArgs(cmd.Args)
	id, err := b.claim(attrs["id"], "group", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	children, err := b.flowables(cmd.Block, level)
	if err != nil {
		return nil, err
	}
	return layout.NewGroup(id, style, children...), nil
}

// figure 构建带编号题注的浮动体：
//
//	figure fig1 { image Logo width 50mm; caption { "..." } }
func (b *builder) figure(cmd *dsl.Command) (layout.Flowable, error) {
	if b.static {
		return nil, fmt.Errorf("第 %d 行：页眉页脚中不能使用浮动体", cmd.Pos.Line)
	}
	var content layout.Flowable
	var caption string
	prefix := ""
	for _, c := range cmd.Block.Commands() {
		var err error
		switch c.Name {
		case "image":
			content, err = b.image(c)
			if prefix == "" {
				prefix = "Figure"
			}
		case "table":
			content, _, err = b.table(c)
			if prefix == "" {
				prefix = "Table"
			}
		case "caption":
			caption = c.Text()
		default:
			err = fmt.Errorf("第 %d 行：figure 中未知的语句 %s", c.Pos.Line, c.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	if content == nil {
		return nil, fmt.Errorf("第 %d 行：figure 缺少图片或表格", cmd.Pos.Line)
	}
	args := cmd.Args
	id := ""
	if len(args)%2 == 1 {
		id, args = args[0].Value, args[1:]
	}
	_, attrs := parseArgs(args)
	if attrs["prefix"] != "" {
		prefix = attrs["prefix"]
	}
	return b.float(id, attrs["style"], prefix, content, caption, cmd.Pos.Line)
}

func (b *builder) float(id, style, prefix string, content layout.Flowable, caption string, line int) (layout.Flowable, error) {
	id, err := b.claim(id, "float", line)
	if err != nil {
		return nil, err
	}
	b.counters["float:"+prefix]++
	number := strconv.Itoa(b.counters["float:"+prefix])
	captionText := prefix + " " + number
	if caption != "" {
		captionText += ": " + caption
	}
	p, err := b.paragraph(id+".caption", "caption", layout.KindParagraph, captionText, nil)
	if err != nil {
		return nil, err
	}
	b.labels[id] = layout.Label{Number: number, Title: b.expand(caption)}
	return layout.NewFloat(id, style, content, p), nil
}

// tableCommand 构建表格；带 caption 的表格作为浮动体排版。
func (b *builder) tableCommand(cmd *dsl.Command) (layout.Flowable, error) {
	t, caption, err := b.table(cmd)
	if err != nil {
		return nil, err
	}
	if caption == nil {
		return t, nil
	}
	if b.static {
		return nil, fmt.Errorf("第 %d 行：页眉页脚中不能使用浮动体", cmd.Pos.Line)
	}
	return b.float(t.ID()+".float", "", "Table", t, caption.Text(), cmd.Pos.Line)
}

// table 解析 header/row/rows 行：
//
//	rows data.items { "${item.name}" "${index}" }
//
// rows 对数组中的每个元素生成一行，元素绑定为 item，序号（从 1 开始）为 index。
func (b *builder) table(cmd *dsl.Command) (*layout.Table, *dsl.Command, error) {
	style, attrs := parseArgs(cmd.Args)
	id := attrs["id"]
	if len(cmd.Args) == 1 {
		id, style = cmd.Args[0].Value, ""
	} else if len(cmd.Args)%2 == 1 && attrs["id"] == "" {
		id, style = style, attrs["style"]
	}
	id, err := b.claim(id, "table", cmd.Pos.Line)
	if err != nil {
		return nil, nil, err
	}
	t := layout.NewTable(id, style)
	var caption *dsl.Command
	for _, row := range cmd.Block.Commands() {
		switch row.Name {
		case "header", "row":
			cells, err := b.cells(row, binding.Data(b.data))
			if err != nil {
				return nil, nil, err
			}
			t.AddRow(row.Name == "header", cells...)
		case "rows":
			var path strings.Builder
			for _, arg := range row.Args {
				path.WriteString(arg.Value)
			}
			val, ok := binding.Resolve(b.data, path.String())
			items, isList := val.([]any)
			if !ok || !isList {
				return nil, nil, fmt.Errorf("第 %d 行：rows %s 不是数组", row.Pos.Line, path.String())
			}
			for i, item := range items {
				lookup := binding.First(
					binding.Data(map[string]any{"item": item, "index": i + 1}),
					binding.Data(b.data),
				)
				cells, err := b.cells(row, lookup)
				if err != nil {
					return nil, nil, err
				}
				t.AddRow(false, cells...)
			}
		case "caption":
			caption = row
		default:
			return nil, nil, fmt.Errorf("第 %d 行：table 中未知的语句 %s", row.Pos.Line, row.Name)
		}
	}
	return t, caption, nil
}

func (b *builder) cells(row *dsl.Command, lookup binding.Lookup) ([]string, error) {
	raw := literals(row.Block)
	cells := make([]string, 0, len(raw))
	for _, c := range raw {
		if strings.Contains(c, noteRefPrefix) {
			return nil, fmt.Errorf("第 %d 行：表格单元格中不支持脚注", row.Pos.Line)
		}
		cells = append(cells, b.expandWith(c, lookup))
	}
	return cells, nil
}

// image 解析 `image Name [width 50mm] [height 30mm] [fit cover] [opacity 0.5]`。
func (b *builder) image(cmd *dsl.Command) (layout.Flowable, error) {
	name := cmd.Arg(0)
	if name == "" {
		return nil, fmt.Errorf("第 %d 行：image 语句缺少资源或 src", cmd.Pos.Line)
	}
	_, attrs := parseArgs(cmd.Args[1:])
	id, err := b.claim(attrs["id"], "image", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	src, w, h := b.imageSource(name)
	if v := layout.ParseLength(attrs["width"]); v > 0 {
		w, h = v, h*v/w
	}
	if v := layout.ParseLength(attrs["height"]); v > 0 {
		if attrs["width"] == "" {
			w = w * v / h
		}
		h = v
	}
	img := layout.NewImage(id, attrs["style"], src, w, h).WithFit(attrs["fit"])
	if v, err := strconv.ParseFloat(attrs["opacity"], 64); err == nil {
		img.WithOpacity(v)
	}
	return img, nil
}

func (b *builder) rule(cmd *dsl.Command) (layout.Flowable, error) {
	id, err := b.claim("", "rule", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	h := layout.ParseLength(cmd.Arg(0))
	if h <= 0 {
		h = 1
	}
	r := layout.NewRule(id, "rule", h)
	for _, arg := range cmd.Args {
		if arg.Value == "stroke" {
			r.Stroked()
		}
	}
	return r, nil
}

func (b *builder) tocCommand(cmd *dsl.Command) (layout.Flowable, error) {
	if b.static {
		return nil, fmt.Errorf("第 %d 行：页眉页脚中不能使用 toc", cmd.Pos.Line)
	}
	id, err := b.claim(cmd.Arg(0), "toc", cmd.Pos.Line)
	if err != nil {
		return nil, err
	}
	g := layout.NewGroup(id, "toc")
	b.tocs = append(b.tocs, g)
	return g, nil
}

// fillTOC 在全部章节构建完成后填充目录，页码由分页后的引用解析给出。
func (b *builder) fillTOC() {
	for _, g := range b.tocs {
		for _, e := range b.toc {
			entry := strings.TrimSpace(e.number + " " + e.title)
			id, _ := b.claim("", "toc-entry", 0)
			g.Append(layout.NewParagraph(id, "toc-"+strconv.Itoa(e.level), fmt.Sprintf("%s  ${page:%s}", entry, e.id)))
		}
	}
}
