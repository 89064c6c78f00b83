package layout

import (
	"fmt"
	"math"
)

// maxStabilizeIterations caps the retries of one container step while the
// footnote space it feeds is still changing.
const maxStabilizeIterations = 8

// ContainerID indexes a container in its page's arena.
type ContainerID int

// NoContainer marks an absent relation.
const NoContainer ContainerID = -1

// RegionKind is the role of a container on its page.
type RegionKind int

const (
	RegionBody RegionKind = iota
	RegionHeader
	RegionFooter
	RegionTitle
	RegionColumn
	RegionFloats
	RegionFootnotes
)

func (k RegionKind) String() string {
	switch k {
	case RegionBody:
		return "body"
	case RegionHeader:
		return "header"
	case RegionFooter:
		return "footer"
	case RegionTitle:
		return "title"
	case RegionColumn:
		return "column"
	case RegionFloats:
		return "floats"
	case RegionFootnotes:
		return "footnotes"
	}
	return "unknown"
}

// GrowMode tells how a container's extent follows its content.
type GrowMode int

const (
	// Fill containers span their whole allotted area.
	Fill GrowMode = iota
	// GrowDown containers start at their top edge and extend downward.
	GrowDown
	// GrowUp containers start at their bottom edge and extend upward.
	GrowUp
)

// ContainerState tracks a chain-bound container through the page pass.
type ContainerState int

const (
	ContainerEmpty ContainerState = iota
	ContainerFilling
	ContainerFull
	ContainerExhausted
)

// Container is a rectangular region of a page. Offsets are relative to
// the parent; edges can instead be bound to a sibling (TopTo: below the
// sibling's bottom, BottomTo: above the sibling's top). The gaps apply
// only while that sibling has content.
type Container struct {
	ID     ContainerID
	Name   string
	Kind   RegionKind
	Parent ContainerID

	Left   float64
	Width  float64
	Top    float64
	Bottom float64

	TopTo     ContainerID
	BottomTo  ContainerID
	TopGap    float64
	BottomGap float64

	Grow  GrowMode
	Chain string

	FloatSpace    ContainerID
	FootnoteSpace ContainerID

	State    ContainerState
	Overflow bool

	fragments []Fragment
	used      float64
	lastBelow float64
}

func (c *Container) Used() float64         { return c.used }
func (c *Container) Empty() bool           { return len(c.fragments) == 0 }
func (c *Container) Fragments() []Fragment { return c.fragments }

// PlacementResult reports one Place call.
type PlacementResult struct {
	Consumed  int
	Remaining float64
	Exhausted bool
	Progress  bool
}

// pendingNote is a queued footnote with its continuation state.
type pendingNote struct {
	note  *Footnote
	state State
}

// hypo adds extra used height to one container while measuring.
type hypo struct {
	id    ContainerID
	extra float64
}

var noHypo = hypo{id: NoContainer}

// Sheet is the container arena of one physical page, built from a template.
type Sheet struct {
	Number   int
	Template *PageTemplate

	containers []Container
	dependents [][]ContainerID

	body, header, footer ContainerID
	title                ContainerID
	floats, notes        ContainerID
	columns              []ContainerID

	doc            *Document
	notesDeferred  bool
	floatsDeferred bool
}

// NewSheet builds the container arena of page number from tpl.
func NewSheet(doc *Document, tpl *PageTemplate, number int) (*Sheet, error) {
	p := &Sheet{
		Number:   number,
		Template: tpl,
		doc:      doc,
		header:   NoContainer,
		footer:   NoContainer,
		title:    NoContainer,
	}
	b := tpl.Body()
	body := region("body", RegionBody, NoContainer)
	body.Left, body.Width = b.X, b.Width
	body.Top, body.Bottom = tpl.Margin.Top, tpl.Margin.Bottom
	p.body = p.add(body)

	top, bottom := tpl.HeaderHeight, tpl.FooterHeight
	if tpl.HeaderHeight > 0 {
		c := region("header", RegionHeader, p.body)
		c.Width, c.Bottom = b.Width, b.Height-tpl.HeaderHeight
		p.header = p.add(c)
	}
	if tpl.FooterHeight > 0 {
		c := region("footer", RegionFooter, p.body)
		c.Width, c.Top = b.Width, b.Height-tpl.FooterHeight
		p.footer = p.add(c)
	}
	// spaces span the content area between header and footer
	space := func(name string, kind RegionKind, grow GrowMode) Container {
		c := region(name, kind, p.body)
		c.Width, c.Top, c.Bottom, c.Grow = b.Width, top, bottom, grow
		return c
	}

	above := NoContainer
	if tpl.TitleChain != "" {
		c := space("title", RegionTitle, GrowDown)
		c.Chain = tpl.TitleChain
		p.title = p.add(c)
		above = p.title
	}
	notes := space("footnotes", RegionFootnotes, GrowUp)
	notes.TopTo = above
	p.notes = p.add(notes)

	below, belowGap := p.notes, tpl.FootnoteGap
	if tpl.floatPlacement() == FloatsTop {
		c := space("floats", RegionFloats, GrowDown)
		c.TopTo, c.TopGap = above, tpl.FloatGap
		p.floats = p.add(c)
		above = p.floats
	} else {
		c := space("floats", RegionFloats, GrowUp)
		c.TopTo, c.TopGap = above, tpl.FloatGap
		c.BottomTo, c.BottomGap = p.notes, tpl.FootnoteGap
		p.floats = p.add(c)
		below, belowGap = p.floats, tpl.FloatGap
	}

	colW := tpl.ColumnWidth()
	for i := 0; i < tpl.columns(); i++ {
		c := region(fmt.Sprintf("column-%d", i+1), RegionColumn, p.body)
		c.Left, c.Width = float64(i)*(colW+tpl.ColumnGap), colW
		c.Top, c.Bottom = top, bottom
		c.TopTo, c.TopGap = above, tpl.FloatGap
		c.BottomTo, c.BottomGap = below, belowGap
		c.Chain = tpl.Chain
		p.columns = append(p.columns, p.add(c))
	}
	for i := range p.containers {
		p.containers[i].FloatSpace = p.floats
		p.containers[i].FootnoteSpace = p.notes
	}
	if err := p.link(); err != nil {
		return nil, err
	}
	return p, nil
}

func region(name string, kind RegionKind, parent ContainerID) Container {
	return Container{
		Name:          name,
		Kind:          kind,
		Parent:        parent,
		TopTo:         NoContainer,
		BottomTo:      NoContainer,
		FloatSpace:    NoContainer,
		FootnoteSpace: NoContainer,
	}
}

func (p *Sheet) add(c Container) ContainerID {
	c.ID = ContainerID(len(p.containers))
	p.containers = append(p.containers, c)
	return c.ID
}

// link records dependents and rejects cyclic edge bindings.
func (p *Sheet) link() error {
	p.dependents = make([][]ContainerID, len(p.containers))
	for _, c := range p.containers {
		for _, to := range []ContainerID{c.TopTo, c.BottomTo} {
			if to != NoContainer {
				p.dependents[to] = append(p.dependents[to], c.ID)
			}
		}
	}
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(p.containers))
	var visit func(id ContainerID) error
	visit = func(id ContainerID) error {
		switch color[id] {
		case grey:
			return &GeometryError{Template: p.Template.Name, Container: p.containers[id].Name, Reason: "边界绑定存在循环"}
		case black:
			return nil
		}
		color[id] = grey
		c := p.containers[id]
		for _, to := range []ContainerID{c.TopTo, c.BottomTo, c.Parent} {
			if to != NoContainer {
				if err := visit(to); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}
	for i := range p.containers {
		if err := visit(ContainerID(i)); err != nil {
			return err
		}
	}
	return nil
}

// Container returns the arena entry for id.
func (p *Sheet) Container(id ContainerID) *Container { return &p.containers[id] }

// Containers returns the arena in creation order.
func (p *Sheet) Containers() []Container { return p.containers }

func (p *Sheet) Columns() []ContainerID { return p.columns }
func (p *Sheet) FloatSpace() ContainerID { return p.floats }
func (p *Sheet) Footnotes() ContainerID { return p.notes }
func (p *Sheet) Title() ContainerID { return p.title }

func (p *Sheet) usedWith(id ContainerID, h hypo) float64 {
	u := p.containers[id].used
	if h.id == id {
		u += h.extra
	}
	return u
}

// outer returns the absolute top and bottom a container may occupy.
func (p *Sheet) outer(id ContainerID) (float64, float64) {
	c := &p.containers[id]
	var pt, pb float64
	if c.Parent == NoContainer {
		pt, pb = 0, p.Template.Height
	} else {
		pt, pb = p.edges(c.Parent)
	}
	top := pt + c.Top
	if c.TopTo != NoContainer {
		_, nb := p.edges(c.TopTo)
		top = nb
		if p.containers[c.TopTo].used > 0 {
			top += c.TopGap
		}
	}
	bottom := pb - c.Bottom
	if c.BottomTo != NoContainer {
		nt, _ := p.edges(c.BottomTo)
		bottom = nt
		if p.containers[c.BottomTo].used > 0 {
			bottom -= c.BottomGap
		}
	}
	return top, bottom
}

// edges returns the absolute top and bottom of a container's current
// extent.
func (p *Sheet) edges(id ContainerID) (float64, float64) {
	top, bottom := p.outer(id)
	c := &p.containers[id]
	switch c.Grow {
	case GrowDown:
		bottom = top + c.used
	case GrowUp:
		top = bottom - c.used
	}
	return top, bottom
}

// Capacity is the height the container may occupy right now.
func (p *Sheet) Capacity(id ContainerID) float64 {
	top, bottom := p.outer(id)
	return bottom - top
}

// Free is the capacity left after the placed content.
func (p *Sheet) Free(id ContainerID) float64 {
	return p.Capacity(id) - p.containers[id].used
}

// Rect returns the absolute rectangle of the container's current extent.
func (p *Sheet) Rect(id ContainerID) Rect {
	c := &p.containers[id]
	x := c.Left
	for parent := c.Parent; parent != NoContainer; parent = p.containers[parent].Parent {
		x += p.containers[parent].Left
	}
	top, bottom := p.edges(id)
	return Rect{X: x, Y: top, Width: c.Width, Height: bottom - top}
}

// slack is how far a grow space can extend before some container bound
// to it, directly or through other spaces, would run out of room.
func (p *Sheet) slack(id ContainerID, h hypo) float64 {
	room := p.Capacity(id) - p.usedWith(id, h)
	for _, d := range p.dependents[id] {
		room = math.Min(room, p.slack(d, h)-p.gapTerm(d, id))
	}
	return room
}

// gapTerm is the gap d gains against s when s receives its first item.
func (p *Sheet) gapTerm(d, s ContainerID) float64 {
	if p.containers[s].used > 0 {
		return 0
	}
	c := &p.containers[d]
	if c.TopTo == s {
		return c.TopGap
	}
	return c.BottomGap
}

// GrowthRoom is the height a float or footnote space can still take.
func (p *Sheet) GrowthRoom(id ContainerID) float64 {
	return p.slack(id, noHypo)
}

func (p *Sheet) ctx() *FlowContext {
	return p.doc.flowContext(p.Number, false)
}

// put appends a fragment at the container's current fill level.
func (p *Sheet) put(id ContainerID, frag Fragment, spacing float64) Fragment {
	c := &p.containers[id]
	frag.Y = c.used + spacing
	c.fragments = append(c.fragments, frag)
	c.used = frag.Y + frag.Height
	if !frag.Overflow && p.Free(id) < -epsilon {
		c.Overflow = true
	}
	if frag.Overflow {
		c.Overflow = true
		p.doc.warn(Warning{
			Kind:      WarnOverflow,
			Page:      p.Number,
			Container: c.Name,
			Flowable:  frag.Flowable,
			Message:   fmt.Sprintf("%s %s 高 %.2fmm，超出容器 %s", frag.Kind, frag.Flowable, frag.Height, c.Name),
		})
	}
	p.doc.record(frag, p.Number)
	return frag
}

// Place flows the container's chain into it until something does not fit
// or the chain is drained.
func (p *Sheet) Place(id ContainerID) (PlacementResult, error) {
	c := &p.containers[id]
	chain, ok := p.doc.chains[c.Chain]
	if !ok {
		return PlacementResult{}, fmt.Errorf("容器 %s: %s: %w", c.Name, c.Chain, ErrUnknownChain)
	}
	var res PlacementResult
	if chain.Drained() {
		if c.Empty() {
			c.State = ContainerExhausted
			p.doc.warn(Warning{
				Kind:      WarnChainStarvation,
				Page:      p.Number,
				Container: c.Name,
				Message:   fmt.Sprintf("内容链 %s 已耗尽，容器 %s 为空", chain.Name(), c.Name),
			})
		}
		res.Exhausted = true
		res.Remaining = p.Free(id)
		return res, nil
	}
	c.State = ContainerFilling
	for !chain.Drained() {
		placed, err := p.step(id, chain)
		if err != nil {
			return res, err
		}
		if !placed {
			p.containers[id].State = ContainerFull
			break
		}
		res.Consumed++
		res.Progress = true
	}
	c = &p.containers[id]
	if chain.Drained() {
		res.Exhausted = true
		if c.State != ContainerFull {
			c.State = ContainerExhausted
		}
	}
	res.Remaining = p.Free(id)
	return res, nil
}

// step places one chain step into the container. It retries with a
// smaller height while the footnotes referenced by the step do not fit
// next to it, and forces placement when the container is empty.
func (p *Sheet) step(id ContainerID, chain *Chain) (bool, error) {
	c := &p.containers[id]
	ctx := p.ctx()
	f, st, _ := chain.Peek()
	empty := c.Empty()
	spacing := 0.0
	if !empty && st == nil {
		spacing = math.Max(c.lastBelow, ctx.spaceAbove(f))
	}
	full := p.Free(id) - spacing
	avail := full
	for iter := 0; iter < maxStabilizeIterations; iter++ {
		pl, err := chain.Measure(ctx, c.Width, avail, false)
		if err != nil {
			return false, err
		}
		if pl.Empty() {
			break
		}
		if !empty && pl.Done() && keepsWithNext(f) {
			fits, err := p.nextFits(ctx, c.Width, chain, f, avail-pl.Fragment.Height)
			if err != nil {
				return false, err
			}
			if !fits {
				return false, nil
			}
		}
		need, err := p.noteDemand(ctx, id, pl, spacing)
		if err != nil {
			return false, err
		}
		if need <= epsilon || iter == maxStabilizeIterations-1 {
			return true, p.commit(id, chain, f, pl, spacing)
		}
		p.doc.log.Debug("footnote space grows, retrying step",
			"page", p.Number, "container", c.Name, "flowable", f.ID(), "shrink", need)
		avail = math.Min(avail, pl.Fragment.Height) - need
	}
	if !empty {
		return false, nil
	}
	pl, err := chain.Measure(ctx, c.Width, full, true)
	if err != nil {
		return false, err
	}
	if pl.Empty() {
		return false, fmt.Errorf("%s %s 强制放置失败: %w", f.Kind(), f.ID(), ErrNoProgress)
	}
	return true, p.commit(id, chain, f, pl, spacing)
}

func (p *Sheet) nextFits(ctx *FlowContext, width float64, chain *Chain, f Flowable, room float64) (bool, error) {
	next, ok := chain.PeekNext()
	if !ok {
		return true, nil
	}
	gap := math.Max(ctx.spaceBelow(f), ctx.spaceAbove(next))
	pl, err := next.Flow(ctx, width, room-gap, nil, false)
	if err != nil {
		return false, err
	}
	return !pl.Empty(), nil
}

// noteDemand returns by how much the body must shrink so that the notes
// referenced by pl can start on this page. Zero means they fit (or are
// deferred anyway because earlier notes are waiting).
func (p *Sheet) noteDemand(ctx *FlowContext, id ContainerID, pl Placement, spacing float64) (float64, error) {
	if len(pl.Notes) == 0 || len(p.doc.noteQueue) > 0 || p.notesDeferred {
		return 0, nil
	}
	fn := &p.containers[p.notes]
	h := hypo{id: id, extra: spacing + pl.Fragment.Height}
	room := p.slack(p.notes, h)
	first := fn.Empty()
	for _, n := range pl.Notes {
		sp := 0.0
		if !first {
			sp = p.Template.NoteSpacing
		}
		npl, err := n.Flow(ctx, fn.Width, room-sp, nil, false)
		if err != nil {
			return 0, err
		}
		if npl.Empty() {
			minimal, err := n.Flow(ctx, fn.Width, 0, nil, true)
			if err != nil {
				return 0, err
			}
			return math.Max(minimal.Fragment.Height+sp-room, epsilon*10), nil
		}
		if !npl.Done() {
			return 0, nil
		}
		room -= sp + npl.Fragment.Height
		first = false
	}
	return 0, nil
}

func (p *Sheet) commit(id ContainerID, chain *Chain, f Flowable, pl Placement, spacing float64) error {
	if err := chain.Commit(pl); err != nil {
		return err
	}
	p.put(id, pl.Fragment, spacing)
	c := &p.containers[id]
	c.lastBelow = 0
	if pl.Done() {
		c.lastBelow = p.ctx().spaceBelow(f)
	}
	for _, n := range pl.Notes {
		if _, err := p.RequestNote(n); err != nil {
			return err
		}
	}
	for _, fl := range pl.Floats {
		if _, err := p.RequestFloat(fl); err != nil {
			return err
		}
	}
	return nil
}

// RequestFloat places a float on this page if it fits and nothing is
// waiting before it; otherwise it joins the document's float queue.
func (p *Sheet) RequestFloat(f *Float) (bool, error) {
	if len(p.doc.floatQueue) > 0 || p.floatsDeferred {
		p.doc.floatQueue = append(p.doc.floatQueue, f)
		return false, nil
	}
	ok, err := p.placeFloat(f, false)
	if err != nil {
		return false, err
	}
	if !ok {
		p.floatsDeferred = true
		p.doc.floatQueue = append(p.doc.floatQueue, f)
		p.doc.log.Debug("float deferred", "page", p.Number, "float", f.ID())
	}
	return ok, nil
}

func (p *Sheet) placeFloat(f *Float, force bool) (bool, error) {
	fs := &p.containers[p.floats]
	sp := 0.0
	if !fs.Empty() {
		sp = p.Template.FloatSpacing
	}
	room := p.slack(p.floats, noHypo) - sp
	pl, err := f.Body(p.ctx(), fs.Width, room, force)
	if err != nil {
		return false, err
	}
	if pl.Empty() {
		return false, nil
	}
	p.put(p.floats, pl.Fragment, sp)
	for _, n := range pl.Notes {
		if _, err := p.RequestNote(n); err != nil {
			return false, err
		}
	}
	return true, nil
}

// RequestNote places a footnote, possibly partially, in this page's
// footnote space. Whatever does not fit is queued for the next page, and
// every later note of this page queues behind it.
func (p *Sheet) RequestNote(n *Footnote) (bool, error) {
	if len(p.doc.noteQueue) > 0 || p.notesDeferred {
		p.doc.noteQueue = append(p.doc.noteQueue, pendingNote{note: n})
		return false, nil
	}
	pl, err := p.flowNote(n, nil, false)
	if err != nil {
		return false, err
	}
	if pl.Empty() {
		p.notesDeferred = true
		p.doc.noteQueue = append(p.doc.noteQueue, pendingNote{note: n})
		p.doc.log.Debug("footnote deferred", "page", p.Number, "note", n.ID())
		return false, nil
	}
	if pl.Rest != nil {
		p.notesDeferred = true
		p.doc.noteQueue = append(p.doc.noteQueue, pendingNote{note: n, state: pl.Rest})
		p.doc.log.Debug("footnote split", "page", p.Number, "note", n.ID())
		return false, nil
	}
	return true, nil
}

// flowNote measures a note against the footnote space and places what
// fits.
func (p *Sheet) flowNote(n *Footnote, state State, force bool) (Placement, error) {
	fn := &p.containers[p.notes]
	sp := 0.0
	if !fn.Empty() {
		sp = p.Template.NoteSpacing
	}
	room := p.slack(p.notes, noHypo) - sp
	pl, err := n.Flow(p.ctx(), fn.Width, room, state, force)
	if err != nil || pl.Empty() {
		return pl, err
	}
	p.put(p.notes, pl.Fragment, sp)
	for _, fl := range pl.Floats {
		if _, err := p.RequestFloat(fl); err != nil {
			return pl, err
		}
	}
	return pl, nil
}

// drainFloats places queued floats at the start of the page. The head of
// the queue is forced into an empty float space so that a float taller
// than any page still appears.
func (p *Sheet) drainFloats() (bool, error) {
	progress := false
	for len(p.doc.floatQueue) > 0 {
		f := p.doc.floatQueue[0]
		ok, err := p.placeFloat(f, p.containers[p.floats].Empty())
		if err != nil {
			return progress, err
		}
		if !ok {
			p.floatsDeferred = true
			break
		}
		p.doc.floatQueue = p.doc.floatQueue[1:]
		progress = true
	}
	return progress, nil
}

// drainNotes continues queued footnotes. The head note gets at least one
// line when the footnote space is still empty.
func (p *Sheet) drainNotes() (bool, error) {
	progress := false
	for len(p.doc.noteQueue) > 0 {
		head := p.doc.noteQueue[0]
		pl, err := p.flowNote(head.note, head.state, p.containers[p.notes].Empty())
		if err != nil {
			return progress, err
		}
		if pl.Empty() {
			p.notesDeferred = true
			break
		}
		progress = true
		if pl.Rest != nil {
			p.doc.noteQueue[0].state = pl.Rest
			p.notesDeferred = true
			break
		}
		p.doc.noteQueue = p.doc.noteQueue[1:]
	}
	return progress, nil
}

// fillStatic lays out header or footer content from scratch.
func (p *Sheet) fillStatic(id ContainerID, items []Flowable) error {
	if id == NoContainer || len(items) == 0 {
		return nil
	}
	ctx := p.ctx()
	c := &p.containers[id]
	var prev Flowable
	for _, f := range items {
		sp := 0.0
		if prev != nil {
			sp = math.Max(ctx.spaceBelow(prev), ctx.spaceAbove(f))
		}
		pl, err := f.Flow(ctx, c.Width, p.Free(id)-sp, nil, c.Empty())
		if err != nil {
			return err
		}
		if pl.Empty() || !pl.Done() {
			if !pl.Empty() {
				p.put(id, pl.Fragment, sp)
			}
			p.doc.warn(Warning{
				Kind:      WarnTruncated,
				Page:      p.Number,
				Container: c.Name,
				Flowable:  f.ID(),
				Message:   fmt.Sprintf("%s 内容放不下，已截断", c.Name),
			})
			return nil
		}
		p.put(id, pl.Fragment, sp)
		prev = f
	}
	return nil
}

// fill runs the page pass: queued floats and notes, static regions, then
// the chain-bound containers in order.
func (p *Sheet) fill() (bool, error) {
	progress := false
	moved, err := p.drainFloats()
	if err != nil {
		return false, err
	}
	progress = progress || moved
	moved, err = p.drainNotes()
	if err != nil {
		return false, err
	}
	progress = progress || moved
	if err := p.fillStatic(p.header, p.Template.Header); err != nil {
		return false, err
	}
	if err := p.fillStatic(p.footer, p.Template.Footer); err != nil {
		return false, err
	}
	order := p.columns
	if p.title != NoContainer {
		order = append([]ContainerID{p.title}, p.columns...)
	}
	for _, id := range order {
		res, err := p.Place(id)
		if err != nil {
			return false, err
		}
		progress = progress || res.Progress
	}
	return progress, nil
}
