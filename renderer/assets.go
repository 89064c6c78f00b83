package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/quire/layout"
)

// builtinFonts 是 builtin:<name> 可以引用的内置字体。
var builtinFonts = map[string][]byte{
	"latin-modern":             lmroman10regular.TTF,
	"latin-modern-bold":        lmroman10bold.TTF,
	"latin-modern-italic":      lmroman10italic.TTF,
	"latin-modern-bold-italic": lmroman10bolditalic.TTF,
	"latin-modern-sans":        lmsans10regular.TTF,
	"latin-modern-mono":        lmmono10regular.TTF,
}

// FallbackFont 返回字体缺失时使用的 Latin Modern Roman。
func FallbackFont() []byte { return lmroman10regular.TTF }

// Assets 解析字体与图片来源：builtin:<name> 先查注入的资源再查内置字体，
// 其余按相对 BaseDir 的路径读取。
type Assets struct {
	BaseDir string
	Fonts   map[string][]byte
	Images  map[string][]byte
}

func builtinName(src string) (string, bool) {
	for _, prefix := range []string{"builtin:", "built-in:"} {
		if strings.HasPrefix(src, prefix) {
			return strings.TrimPrefix(src, prefix), true
		}
	}
	return "", false
}

func (a Assets) path(src string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	if a.BaseDir == "" {
		return "", fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 builtin:）", src)
	}
	return filepath.Join(a.BaseDir, src), nil
}

// FontBytes 读取字体数据。
func (a Assets) FontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体缺少 src")
	}
	if name, ok := builtinName(src); ok {
		if blob, ok := a.Fonts[name]; ok {
			return blob, nil
		}
		if blob, ok := builtinFonts[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 builtin:%s", name)
	}
	path, err := a.path(src)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Image 读取并解码图片，支持 png/jpeg/gif/webp/bmp/tiff。
func (a Assets) Image(src string) (image.Image, error) {
	if src == "" {
		return nil, fmt.Errorf("图片缺少路径")
	}
	var data []byte
	if name, ok := builtinName(src); ok {
		blob, ok := a.Images[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 builtin:%s", name)
		}
		data = blob
	} else {
		path, err := a.path(src)
		if err != nil {
			return nil, err
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", src, err)
	}
	return img, nil
}

// FitImage 计算图片在 w×h 框内的绘制尺寸与偏移（mm）。
// contain 保持比例完整放入；cover 保持比例铺满，超出部分由调用方裁剪；
// fill 拉伸到框的大小。
func FitImage(img image.Image, fit string, w, h float64) (dx, dy, dw, dh float64) {
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw <= 0 || ih <= 0 || w <= 0 || h <= 0 || fit == "fill" {
		return 0, 0, w, h
	}
	scale := min(w/iw, h/ih)
	if fit == "cover" {
		scale = max(w/iw, h/ih)
	}
	dw, dh = iw*scale, ih*scale
	return (w - dw) / 2, (h - dh) / 2, dw, dh
}

// Compose 按 fit 与 opacity 处理图片，返回待绘制的图片及其在框内的偏移与尺寸（mm）。
// cover 会裁掉超出框的部分；opacity 在 (0,1) 之间时预先与透明度蒙版合成。
func Compose(img image.Image, box layout.ImageBox) (out image.Image, dx, dy, dw, dh float64) {
	fit := strings.ToLower(box.Fit)
	dx, dy, dw, dh = FitImage(img, fit, box.Width, box.Height)
	out = img
	if fit == "cover" && (dw > box.Width || dh > box.Height) {
		b := img.Bounds()
		sx := float64(b.Dx()) / dw
		sy := float64(b.Dy()) / dh
		cw := int(math.Round(box.Width * sx))
		ch := int(math.Round(box.Height * sy))
		x0 := b.Min.X + (b.Dx()-cw)/2
		y0 := b.Min.Y + (b.Dy()-ch)/2
		crop := image.NewRGBA(image.Rect(0, 0, cw, ch))
		draw.Copy(crop, image.Point{}, img, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
		out, dx, dy, dw, dh = crop, 0, 0, box.Width, box.Height
	}
	if box.Opacity > 0 && box.Opacity < 1 {
		b := out.Bounds()
		faded := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(box.Opacity * 255))})
		draw.DrawMask(faded, faded.Bounds(), out, b.Min, mask, image.Point{}, draw.Over)
		out = faded
	}
	return out, dx, dy, dw, dh
}
