package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Label is what cross references to an item resolve to.
type Label struct {
	Number string
	Title  string
}

// Document owns the templates, chains, queues and pages of one
// pagination run.
type Document struct {
	templates Templates
	styles    Styles
	resources ResourceSet
	meta      DocumentMeta
	opts      Options
	log       *slog.Logger

	chains     map[string]*Chain
	chainOrder []string
	labels     map[string]Label

	pages      []*Sheet
	floatQueue []*Float
	noteQueue  []pendingNote
	warnings   []Warning
	pageOf     map[string]int
	paginated  bool
}

func NewDocument(templates Templates, styles Styles, opts Options) *Document {
	return &Document{
		templates: templates,
		styles:    styles,
		opts:      opts,
		log:       opts.logger(),
		chains:    map[string]*Chain{},
		labels:    map[string]Label{},
		pageOf:    map[string]int{},
	}
}

func (d *Document) SetResources(res ResourceSet) { d.resources = res }
func (d *Document) SetMeta(meta DocumentMeta) { d.meta = meta }
func (d *Document) Styles() Styles { return d.styles }
func (d *Document) Pages() []*Sheet { return d.pages }
func (d *Document) Warnings() []Warning { return d.warnings }

// AddChain registers a chain under its name.
func (d *Document) AddChain(c *Chain) error {
	if _, ok := d.chains[c.Name()]; ok {
		return fmt.Errorf("chain %s: %w", c.Name(), ErrDuplicateChain)
	}
	d.chains[c.Name()] = c
	d.chainOrder = append(d.chainOrder, c.Name())
	return nil
}

func (d *Document) Chain(name string) (*Chain, bool) {
	c, ok := d.chains[name]
	return c, ok
}

// SetLabel registers the number and title ${number:ID} and ${title:ID}
// resolve to.
func (d *Document) SetLabel(id string, l Label) { d.labels[id] = l }

// PageOf returns the page where the first piece of a flowable was placed.
func (d *Document) PageOf(id string) (int, bool) {
	n, ok := d.pageOf[id]
	return n, ok
}

func (d *Document) validate() error {
	tpls := d.templates.all()
	if len(tpls) == 0 {
		return fmt.Errorf("未提供页面模板: %w", ErrConfiguration)
	}
	bound := map[string]bool{}
	for _, t := range tpls {
		if err := t.Validate(d.chains); err != nil {
			return err
		}
		bound[t.Chain] = true
		if t.TitleChain != "" {
			bound[t.TitleChain] = true
		}
	}
	for _, name := range d.chainOrder {
		if !bound[name] {
			return fmt.Errorf("内容链 %s 没有任何模板绑定: %w", name, ErrConfiguration)
		}
	}
	return nil
}

func (d *Document) done() bool {
	for _, c := range d.chains {
		if !c.Drained() {
			return false
		}
	}
	return len(d.floatQueue) == 0 && len(d.noteQueue) == 0
}

// Paginate lays out every chain, then resolves references and returns
// the finished pages. It can only run once per document.
func (d *Document) Paginate() (*Result, error) {
	if d.paginated {
		return nil, errors.New("layout: document already paginated")
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.paginated = true

	for len(d.pages) == 0 || !d.done() {
		n := len(d.pages) + 1
		if d.opts.MaxPages > 0 && n > d.opts.MaxPages {
			return nil, fmt.Errorf("超过页数上限 %d: %w", d.opts.MaxPages, ErrNoProgress)
		}
		tpl := d.templates.For(n)
		p, err := NewSheet(d, tpl, n)
		if err != nil {
			return nil, err
		}
		d.log.Debug("page created", "page", n, "template", tpl.Name)
		progress, err := p.fill()
		if err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", n, err)
		}
		d.pages = append(d.pages, p)
		if err := d.checkUnbound(n); err != nil {
			return nil, err
		}
		if !progress && !d.done() {
			return nil, fmt.Errorf("第 %d 页无法放置剩余内容（%s）: %w", n, d.pendingSummary(), ErrNoProgress)
		}
	}
	if err := d.resolveReferences(); err != nil {
		return nil, err
	}
	return d.result(), nil
}

// checkUnbound fails when a chain still has content after page n but no
// template of the following pages binds it, as with a title chain of the
// first page only.
func (d *Document) checkUnbound(n int) error {
	next := d.templates.For(n + 1)
	for _, name := range d.chainOrder {
		if !d.chains[name].Drained() && !next.Binds(name) {
			return fmt.Errorf("内容链 %s 在第 %d 页后仍有内容，但模板 %s 没有绑定它: %w", name, n, next.Name, ErrConfiguration)
		}
	}
	return nil
}

func (d *Document) pendingSummary() string {
	var parts []string
	for _, name := range d.chainOrder {
		if !d.chains[name].Drained() {
			parts = append(parts, "chain "+name)
		}
	}
	if len(d.floatQueue) > 0 {
		parts = append(parts, fmt.Sprintf("%d floats", len(d.floatQueue)))
	}
	if len(d.noteQueue) > 0 {
		parts = append(parts, fmt.Sprintf("%d footnotes", len(d.noteQueue)))
	}
	return strings.Join(parts, ", ")
}

func (d *Document) warn(w Warning) {
	d.warnings = append(d.warnings, w)
	level := slog.LevelWarn
	if w.Kind == WarnChainStarvation {
		level = slog.LevelDebug
	}
	d.log.Log(context.Background(), level, w.Message,
		"kind", string(w.Kind), "page", w.Page, "container", w.Container, "flowable", w.Flowable)
}

// record notes the page of every first fragment, including nested ones.
func (d *Document) record(frag Fragment, page int) {
	if frag.Kind != KindLabel && frag.Part == 0 && frag.Flowable != "" {
		if _, ok := d.pageOf[frag.Flowable]; !ok {
			d.pageOf[frag.Flowable] = page
		}
	}
	for _, c := range frag.Children {
		d.record(c, page)
	}
}

func (d *Document) flowContext(page int, final bool) *FlowContext {
	return &FlowContext{
		Typesetter: d.opts.Typesetter,
		Styles:     d.styles,
		Resources:  d.resources,
		Refs:       refResolver{doc: d, page: page, final: final},
		Page:       page,
	}
}

// ChainNames returns the chains in registration order.
func (d *Document) ChainNames() []string {
	return slices.Clone(d.chainOrder)
}
