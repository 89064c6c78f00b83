// Package raster 用 gg 把分页结果画成 PNG 预览图。
package raster

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

// DefaultDPI 是预览图的默认分辨率。
const DefaultDPI = 96

// Renderer 将每页绘制为一张 PNG。
type Renderer struct {
	Assets renderer.Assets
	DPI    float64

	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	src  string
	size float64
}

var _ renderer.Renderer = (*Renderer)(nil)

// New 创建预览渲染器，dpi 不大于 0 时使用 DefaultDPI。
func New(assets renderer.Assets, dpi float64) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{
		Assets: assets,
		DPI:    dpi,
		fonts:  map[string]*opentype.Font{},
		faces:  map[faceKey]font.Face{},
	}
}

// Render 返回第一页的 PNG。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	pages, err := r.RenderPages(result)
	if err != nil {
		return nil, err
	}
	return pages[0], nil
}

// RenderPages 按页返回 PNG 数据。
func (r *Renderer) RenderPages(result *layout.Result) ([][]byte, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	out := make([][]byte, 0, len(result.Pages))
	for _, page := range result.Pages {
		dc, err := r.drawPage(page, result.Resources)
		if err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", page.Number, err)
		}
		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, err
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

// px 把毫米换算为像素。
func (r *Renderer) px(mm float64) float64 { return mm * r.DPI / 25.4 }

func (r *Renderer) drawPage(page layout.Page, res layout.ResourceSet) (*gg.Context, error) {
	w, h := int(r.px(page.Width)+0.5), int(r.px(page.Height)+0.5)
	dc := gg.NewContext(max(w, 1), max(h, 1))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, b := range page.Boxes {
		dc.DrawRectangle(r.px(b.X), r.px(b.Y), r.px(b.Width), r.px(b.Height))
		if b.FillColor != nil {
			setColor(dc, *b.FillColor)
			dc.FillPreserve()
		}
		setColor(dc, b.StrokeColor)
		dc.SetLineWidth(max(r.px(b.StrokeWidth), 1))
		dc.Stroke()
	}
	for _, ln := range page.Lines {
		setColor(dc, ln.Color)
		dc.SetLineWidth(max(r.px(ln.Width), 1))
		dc.DrawLine(r.px(ln.X1), r.px(ln.Y1), r.px(ln.X2), r.px(ln.Y2))
		dc.Stroke()
	}
	for _, tb := range page.Texts {
		if err := r.drawText(dc, tb, res.Fonts); err != nil {
			return nil, err
		}
	}
	for _, box := range page.Images {
		if err := r.drawImage(dc, box); err != nil {
			return nil, err
		}
	}
	for _, table := range page.Tables {
		for _, row := range table.Rows {
			x := table.X
			for i, cell := range row.Cells {
				if len(table.ColumnWidths) == 0 {
					break
				}
				cw := table.ColumnWidths[min(i, len(table.ColumnWidths)-1)]
				dc.DrawRectangle(r.px(x), r.px(row.Y), r.px(cw), r.px(row.Height))
				if row.IsHeader {
					dc.SetRGB255(248, 248, 248)
					dc.FillPreserve()
				}
				setColor(dc, table.BorderColor)
				dc.SetLineWidth(1)
				dc.Stroke()
				if err := r.drawText(dc, cell.Text, res.Fonts); err != nil {
					return nil, err
				}
				x += cw
			}
		}
	}
	return dc, nil
}

func (r *Renderer) drawText(dc *gg.Context, tb layout.TextBox, fonts map[string]layout.FontResource) error {
	src := "builtin:latin-modern"
	if f, ok := fonts[tb.Font]; ok && f.Src != "" {
		src = f.Src
	}
	face, err := r.face(src, tb.FontSize*layout.MmToPt)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	setColor(dc, tb.Color)

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Height: tb.LineHeight}}
	}
	ascent := float64(face.Metrics().Ascent) / 64
	y := r.px(tb.Y)
	for _, line := range lines {
		y += r.px(line.GapBefore)
		if line.Content != "" {
			x, ax := r.px(tb.X), 0.0
			switch strings.ToLower(tb.Align) {
			case "center":
				x, ax = r.px(tb.X+tb.Width/2), 0.5
			case "right", "end":
				x, ax = r.px(tb.X+tb.Width), 1
			}
			dc.DrawStringAnchored(line.Content, x, y+ascent, ax, 0)
		}
		lh := line.Height
		if lh <= 0 {
			lh = tb.LineHeight
		}
		y += r.px(lh)
	}
	return nil
}

func (r *Renderer) drawImage(dc *gg.Context, box layout.ImageBox) error {
	if box.Path == "" || box.Width <= 0 || box.Height <= 0 {
		return nil
	}
	img, err := r.Assets.Image(box.Path)
	if err != nil {
		return err
	}
	out, dx, dy, dw, dh := renderer.Compose(img, box)
	dst := image.NewRGBA(image.Rect(0, 0, max(int(r.px(dw)+0.5), 1), max(int(r.px(dh)+0.5), 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), out, out.Bounds(), draw.Over, nil)
	dc.DrawImage(dst, int(r.px(box.X+dx)+0.5), int(r.px(box.Y+dy)+0.5))
	return nil
}

// face 按来源与字号（pt）缓存字体面；读不到的字体退回 Latin Modern。
func (r *Renderer) face(src string, sizePt float64) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := faceKey{src: src, size: sizePt}
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	ft, ok := r.fonts[src]
	if !ok {
		data, err := r.Assets.FontBytes(src)
		if err != nil {
			data = renderer.FallbackFont()
		}
		ft, err = opentype.Parse(data)
		if err != nil {
			if ft, err = opentype.Parse(renderer.FallbackFont()); err != nil {
				return nil, err
			}
		}
		r.fonts[src] = ft
	}
	if sizePt <= 0 {
		sizePt = 10
	}
	f, err := opentype.NewFace(ft, &opentype.FaceOptions{Size: sizePt, DPI: r.DPI, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	r.faces[key] = f
	return f, nil
}

func setColor(dc *gg.Context, c layout.Color) {
	dc.SetRGB255(c.R, c.G, c.B)
}
