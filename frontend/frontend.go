// Package frontend turns a parsed quire document into the flowable tree,
// page templates and styles the layout engine paginates.
package frontend

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// builder 在一次 Build 中累积资源、样式、编号与脚注。
type builder struct {
	data   any
	res    layout.ResourceSet
	styles map[string]layout.Style

	chains     map[string]*layout.Chain
	chainOrder []string
	labels     map[string]layout.Label

	noteDefs map[string]*dsl.Command
	notes    map[string]*layout.Footnote
	noteSeq  int

	ids      map[string]bool
	counters map[string]int
	sections []int
	toc      []tocEntry
	tocs     []*layout.Group

	// static 为真时正在构建页眉页脚，不允许脚注与编号。
	static bool
	inNote bool
}

type tocEntry struct {
	id     string
	number string
	title  string
	level  int
}

// Build 把 DSL 文档转换为可分页的 layout.Document。data 是 JSON 解码后的
// 数据，供 ${path} 插值；页码、编号等引用留给分页阶段解析。
func Build(doc *dsl.Document, data any, opts layout.Options) (*layout.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	res, rawStyles, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	b := &builder{
		data:     data,
		res:      res,
		styles:   rawStyles,
		chains:   map[string]*layout.Chain{},
		labels:   map[string]layout.Label{},
		noteDefs: map[string]*dsl.Command{},
		notes:    map[string]*layout.Footnote{},
		ids:      map[string]bool{},
		counters: map[string]int{},
	}

	for _, section := range doc.Sections {
		if section.Content != nil {
			if err := b.collectNotes(section.Content.Block); err != nil {
				return nil, err
			}
		}
	}

	tpls, err := b.buildTemplates(doc)
	if err != nil {
		return nil, err
	}

	for _, section := range doc.Sections {
		cs := section.Content
		if cs == nil {
			continue
		}
		name := cs.Chain
		if name == "" {
			name = DefaultChain
		}
		items, err := b.flowables(cs.Block, 1)
		if err != nil {
			return nil, fmt.Errorf("content %s: %w", name, err)
		}
		chain, ok := b.chains[name]
		if !ok {
			chain = layout.NewChain(name)
			b.chains[name] = chain
			b.chainOrder = append(b.chainOrder, name)
		}
		chain.Append(items...)
	}
	b.fillTOC()

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	for id := range b.noteDefs {
		if _, used := b.notes[id]; !used {
			log.Warn("脚注未被引用", "note", id)
		}
	}

	styles, err := layout.NewStyles(b.styles)
	if err != nil {
		return nil, err
	}
	b.res.Styles = styles.Table()

	out := layout.NewDocument(tpls, styles, opts)
	out.SetResources(b.res)
	out.SetMeta(collectMeta(doc, b.expand))
	for _, name := range b.chainOrder {
		if err := out.AddChain(b.chains[name]); err != nil {
			return nil, err
		}
	}
	for id, l := range b.labels {
		out.SetLabel(id, l)
	}
	return out, nil
}

// isLayoutKey 报告 key 是否由分页阶段或脚注处理解析。
func isLayoutKey(key string) bool {
	if key == "page" || key == "pages" {
		return true
	}
	for _, prefix := range []string{"page:", "number:", "title:", "note:"} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// expandWith 用 lookup 解析数据占位符并做 NFC 规范化，保留布局引用。
func (b *builder) expandWith(text string, lookup binding.Lookup) string {
	out, _ := binding.Expand(text, func(key string) (string, bool) {
		if isLayoutKey(key) {
			return "", false
		}
		return lookup(key)
	})
	return norm.NFC.String(out)
}

func (b *builder) expand(text string) string {
	return b.expandWith(text, binding.Data(b.data))
}

// claim 登记显式 ID，没有时按种类生成一个。
func (b *builder) claim(id, kind string, line int) (string, error) {
	if id == "" {
		for {
			b.counters[kind]++
			id = fmt.Sprintf("%s-%d", kind, b.counters[kind])
			if !b.ids[id] {
				break
			}
		}
	} else if b.ids[id] {
		return "", fmt.Errorf("第 %d 行：ID %s 重复", line, id)
	}
	b.ids[id] = true
	return id, nil
}

// inlineStyle 把命令上的内联属性合成为继承 style 的匿名样式。
func (b *builder) inlineStyle(id, style string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return style
	}
	name := "~" + id
	b.styles[name] = layout.Style{Name: name, Extends: style, Props: attrs}
	return name
}
