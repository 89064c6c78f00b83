package frontend

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// 没有声明尺寸且读不到图片头时使用的占位尺寸（mm），宽高比 0.6。
const (
	fallbackImageWidth  = 100
	fallbackImageHeight = 60
	// 像素按 96dpi 换算为毫米。
	pixelMM = 25.4 / 96
)

// imageSource 查找图片资源，返回路径与固有尺寸（mm）。
// 未声明的名称按文件路径处理。
func (b *builder) imageSource(name string) (string, float64, float64) {
	src, w, h := name, 0.0, 0.0
	if img, ok := b.res.Images[name]; ok {
		if img.Src != "" {
			src = img.Src
		}
		w, h = img.Width, img.Height
	}
	if w > 0 && h > 0 {
		return src, w, h
	}
	pw, ph, ok := probeImage(src)
	switch {
	case !ok:
		if w > 0 {
			return src, w, w * fallbackImageHeight / fallbackImageWidth
		}
		return src, fallbackImageWidth, fallbackImageHeight
	case w > 0:
		return src, w, w * ph / pw
	case h > 0:
		return src, h * pw / ph, h
	default:
		return src, pw * pixelMM, ph * pixelMM
	}
}

// probeImage 只解码图片头读取像素尺寸。
func probeImage(path string) (float64, float64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, false
	}
	return float64(cfg.Width), float64(cfg.Height), true
}
