package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/binding"
)

// Reference keys understood in paragraph text.
const (
	refPage   = "page"
	refPages  = "pages"
	refPageOf = "page:"
	refNumber = "number:"
	refTitle  = "title:"
)

// refResolver answers reference keys for one page. Before the final pass
// forward page references and the page count are unknown.
type refResolver struct {
	doc   *Document
	page  int
	final bool
}

func (r refResolver) Resolve(key string) (string, bool) {
	d := r.doc
	switch {
	case key == refPage:
		return strconv.Itoa(r.page), true
	case key == refPages:
		if r.final {
			return strconv.Itoa(len(d.pages)), true
		}
	case strings.HasPrefix(key, refPageOf):
		if n, ok := d.pageOf[strings.TrimPrefix(key, refPageOf)]; ok {
			return strconv.Itoa(n), true
		}
	case strings.HasPrefix(key, refNumber):
		if l, ok := d.labels[strings.TrimPrefix(key, refNumber)]; ok && l.Number != "" {
			return l.Number, true
		}
	case strings.HasPrefix(key, refTitle):
		if l, ok := d.labels[strings.TrimPrefix(key, refTitle)]; ok {
			return l.Title, true
		}
	}
	return "", false
}

// resolveReferences substitutes final values into every fragment measured
// with provisional references. Lines are wrapped again at the fragment's
// own width; the page layout does not change.
func (d *Document) resolveReferences() error {
	missing := map[string]int{}
	for _, p := range d.pages {
		ctx := d.flowContext(p.Number, true)
		for i := range p.containers {
			c := &p.containers[i]
			for j := range c.fragments {
				if err := d.rewrap(ctx, &c.fragments[j], p.Number, missing); err != nil {
					return fmt.Errorf("第 %d 页引用解析: %w", p.Number, err)
				}
			}
		}
	}
	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.warn(Warning{
			Kind:    WarnUnresolvedReference,
			Page:    missing[k],
			Message: fmt.Sprintf("引用 ${%s} 没有目标", k),
		})
	}
	return nil
}

func (d *Document) rewrap(ctx *FlowContext, frag *Fragment, page int, missing map[string]int) error {
	if t := frag.Text; t != nil && t.Pending {
		text, _ := binding.Expand(t.Source, func(key string) (string, bool) {
			if v, ok := ctx.Refs.Resolve(key); ok {
				return v, true
			}
			if _, seen := missing[key]; !seen {
				missing[key] = page
			}
			return Provisional, true
		})
		ts := ctx.textStyle(t.Style, t.Kind)
		lines, err := ctx.layoutLines(text, frag.Width, ts)
		if err != nil {
			return err
		}
		for i := range t.Lines {
			if i < len(lines) {
				t.Lines[i].Content = lines[i].Content
				t.Lines[i].Width = lines[i].Width
			} else {
				t.Lines[i].Content = ""
				t.Lines[i].Width = 0
			}
		}
		// Source holds only this piece, so text that no longer fits the
		// fragment's lines joins its last one
		if len(t.Lines) > 0 {
			last := &t.Lines[len(t.Lines)-1]
			for k := len(t.Lines); k < len(lines); k++ {
				if lines[k].Content == "" {
					continue
				}
				last.Content = strings.TrimSpace(last.Content + " " + lines[k].Content)
				last.Width = frag.Width
			}
		}
		t.Pending = false
	}
	for i := range frag.Children {
		if err := d.rewrap(ctx, &frag.Children[i], page, missing); err != nil {
			return err
		}
	}
	return nil
}
