package layout

import "fmt"

// Chain is an ordered flowable sequence with a cursor. Containers consume
// it in page order; the cursor only moves forward.
type Chain struct {
	name  string
	items []Flowable
	index int
	state State
	steps []ChainStep
}

// ChainStep is one committed placement, kept for auditing.
type ChainStep struct {
	Flowable string
	Part     int
	Final    bool
	Height   float64
}

// FlowStep is the outcome of Chain.Next.
type FlowStep struct {
	Fragment  Fragment
	Remainder State
	Drained   bool
	// Progress is false when nothing fit and the cursor did not move.
	Progress bool
	Notes    []*Footnote
	Floats   []*Float
}

func NewChain(name string, items ...Flowable) *Chain {
	return &Chain{name: name, items: items}
}

func (c *Chain) Name() string { return c.name }

// Append adds flowables at the end. Allowed at any time; a drained chain
// becomes undrained again.
func (c *Chain) Append(items ...Flowable) *Chain {
	c.items = append(c.items, items...)
	return c
}

func (c *Chain) Len() int { return len(c.items) }
func (c *Chain) Items() []Flowable { return c.items }
func (c *Chain) Drained() bool { return c.index >= len(c.items) }
func (c *Chain) Steps() []ChainStep { return c.steps }
func (c *Chain) Cursor() (int, State) { return c.index, c.state }

// Peek returns the flowable under the cursor and its continuation state.
func (c *Chain) Peek() (Flowable, State, bool) {
	if c.Drained() {
		return nil, nil, false
	}
	return c.items[c.index], c.state, true
}

// PeekNext returns the flowable after the one under the cursor.
func (c *Chain) PeekNext() (Flowable, bool) {
	if c.index+1 >= len(c.items) {
		return nil, false
	}
	return c.items[c.index+1], true
}

// Measure flows the current flowable without moving the cursor.
func (c *Chain) Measure(ctx *FlowContext, width, avail float64, force bool) (Placement, error) {
	f, st, ok := c.Peek()
	if !ok {
		return Placement{}, nil
	}
	return f.Flow(ctx, width, avail, st, force)
}

// Commit advances the cursor past a placement obtained from Measure.
func (c *Chain) Commit(p Placement) error {
	if p.Empty() {
		return fmt.Errorf("chain %s: %w", c.name, ErrEmptyCommit)
	}
	f, _, ok := c.Peek()
	if !ok {
		return fmt.Errorf("chain %s 已耗尽，无法提交", c.name)
	}
	c.steps = append(c.steps, ChainStep{
		Flowable: f.ID(),
		Part:     p.Fragment.Part,
		Final:    p.Rest == nil,
		Height:   p.Fragment.Height,
	})
	if p.Rest != nil {
		c.state = p.Rest
		return nil
	}
	c.index++
	c.state = nil
	return nil
}

// Next measures and commits in one go, never forcing.
func (c *Chain) Next(ctx *FlowContext, width, maxHeight float64) (FlowStep, error) {
	pl, err := c.Measure(ctx, width, maxHeight, false)
	if err != nil {
		return FlowStep{}, err
	}
	if pl.Empty() {
		return FlowStep{Drained: c.Drained()}, nil
	}
	if err := c.Commit(pl); err != nil {
		return FlowStep{}, err
	}
	return FlowStep{
		Fragment:  pl.Fragment,
		Remainder: pl.Rest,
		Drained:   c.Drained(),
		Progress:  true,
		Notes:     pl.Notes,
		Floats:    pl.Floats,
	}, nil
}
