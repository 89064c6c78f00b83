package layout

import (
	"fmt"
	"strconv"
	"strings"
)

var defaultTextColor = Color{R: 30, G: 30, B: 30}

// ResolveColor 依次尝试命名颜色与 #hex，失败时返回默认文字颜色。
func ResolveColor(value string, res ResourceSet) Color {
	if value == "" {
		return defaultTextColor
	}
	if c, ok := res.Colors[value]; ok {
		return c
	}
	if strings.HasPrefix(value, "#") {
		if c, err := ParseColor(value); err == nil {
			return c
		}
	}
	return defaultTextColor
}

// ParseColor 解析 #rgb、#rrggbb 与 #rrggbbaa（忽略透明度）。
func ParseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(value) {
	case 3:
		r, err1 := hexByte(strings.Repeat(value[0:1], 2))
		g, err2 := hexByte(strings.Repeat(value[1:2], 2))
		b, err3 := hexByte(strings.Repeat(value[2:3], 2))
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		return Color{R: r, G: g, B: b}, nil
	case 6, 8:
		r, err1 := hexByte(value[0:2])
		g, err2 := hexByte(value[2:4])
		b, err3 := hexByte(value[4:6])
		if err1 != nil || err2 != nil || err3 != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		return Color{R: r, G: g, B: b}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func hexByte(s string) (int, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	return int(v), err
}
