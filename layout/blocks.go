package layout

import "strings"

// Rule is a fixed-height block, drawn as a horizontal line when stroked.
// Unstroked rules act as vertical spacers.
type Rule struct {
	id     string
	style  string
	height float64
	stroke bool
}

func NewRule(id, style string, height float64) *Rule {
	return &Rule{id: id, style: style, height: height}
}

// Stroked makes the rule draw a line through its middle.
func (r *Rule) Stroked() *Rule {
	r.stroke = true
	return r
}

func (r *Rule) ID() string { return r.id }
func (r *Rule) Kind() Kind { return KindRule }
func (r *Rule) Style() string { return r.style }
func (r *Rule) Splittable() bool { return false }
func (r *Rule) Height() float64 { return r.height }

func (r *Rule) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	overflow := r.height > avail+epsilon
	if overflow && !force {
		return Placement{}, nil
	}
	color, _ := ctx.Styles.Get(r.style, KindRule, "color")
	frag := Fragment{
		Flowable: r.id,
		Kind:     KindRule,
		Width:    width,
		Height:   r.height,
		Overflow: overflow,
		Rule: &RuleFragment{
			Stroke:    r.stroke,
			Color:     ResolveColor(color, ctx.Resources),
			Thickness: ctx.Styles.Length(r.style, KindRule, "thickness", 0.3),
		},
	}
	return placedFragment(frag, nil), nil
}

// Image is an atomic picture scaled down to the available width.
type Image struct {
	id      string
	style   string
	src     string
	width   float64
	height  float64
	fit     string
	opacity float64
}

func NewImage(id, style, src string, width, height float64) *Image {
	return &Image{id: id, style: style, src: src, width: width, height: height, fit: "contain", opacity: 1}
}

// WithFit sets the fit mode passed to the renderer (contain, cover, fill).
func (im *Image) WithFit(fit string) *Image {
	if fit != "" {
		im.fit = fit
	}
	return im
}

func (im *Image) WithOpacity(o float64) *Image {
	if o > 0 && o <= 1 {
		im.opacity = o
	}
	return im
}

func (im *Image) ID() string { return im.id }
func (im *Image) Kind() Kind { return KindImage }
func (im *Image) Style() string { return im.style }
func (im *Image) Splittable() bool { return false }
func (im *Image) Src() string { return im.src }

func (im *Image) size(width float64) (float64, float64) {
	w, h := im.width, im.height
	if w <= 0 {
		w = width
	}
	if w > width && w > 0 {
		h = h * width / w
		w = width
	}
	return w, h
}

func (im *Image) Flow(ctx *FlowContext, width, avail float64, state State, force bool) (Placement, error) {
	w, h := im.size(width)
	overflow := h > avail+epsilon
	if overflow && !force {
		return Placement{}, nil
	}
	x := 0.0
	switch strings.ToLower(ctx.Styles.String(im.style, KindImage, "align", "")) {
	case "center", "middle":
		x = (width - w) / 2
	case "right", "end":
		x = width - w
	}
	frag := Fragment{
		Flowable: im.id,
		Kind:     KindImage,
		X:        x,
		Width:    w,
		Height:   h,
		Overflow: overflow,
		Image:    &ImageFragment{Path: im.src, Fit: im.fit, Opacity: im.opacity},
	}
	return placedFragment(frag, nil), nil
}
