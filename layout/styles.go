package layout

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Style 描述一个可继承的样式：名称、父样式与键值属性。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DefaultStyle 是所有查找最后回退到的样式名。
const DefaultStyle = "default"

// Styles 是已经展开继承关系的样式表。零值可用，查找总是失败。
//
// 查找顺序：具名样式（含其 extends 链）→ 与 flowable 种类同名的样式
// （"paragraph"、"heading" …）→ "default"。
type Styles struct {
	table map[string]Style
}

// NewStyles 展开 extends 继承并检测循环。
func NewStyles(raw map[string]Style) (Styles, error) {
	resolved := make(map[string]Style, len(raw))
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := raw[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			maps.Copy(props, parent.Props)
		}
		maps.Copy(props, style.Props)
		style.Name = name
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range raw {
		if _, err := dfs(name); err != nil {
			return Styles{}, err
		}
	}
	return Styles{table: resolved}, nil
}

// MustStyles 与 NewStyles 相同，出错时 panic，用于测试与内置样式表。
func MustStyles(raw map[string]Style) Styles {
	s, err := NewStyles(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup 返回展开后的样式。
func (s Styles) Lookup(name string) (Style, bool) {
	st, ok := s.table[name]
	return st, ok
}

// Names 返回排序后的样式名。
func (s Styles) Names() []string {
	names := make([]string, 0, len(s.table))
	for n := range s.table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Table 返回样式表的副本，用于写入 Result.Resources。
func (s Styles) Table() map[string]Style {
	return maps.Clone(s.table)
}

// Get 按级联顺序查找属性。
func (s Styles) Get(style string, kind Kind, attr string) (string, bool) {
	for _, name := range []string{style, kind.String(), DefaultStyle} {
		if name == "" {
			continue
		}
		if st, ok := s.table[name]; ok {
			if v, ok := st.Props[attr]; ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

// String 返回属性值或 fallback。
func (s Styles) String(style string, kind Kind, attr, fallback string) string {
	if v, ok := s.Get(style, kind, attr); ok {
		return v
	}
	return fallback
}

// Length 以毫米返回长度属性。
func (s Styles) Length(style string, kind Kind, attr string, fallback float64) float64 {
	v, ok := s.Get(style, kind, attr)
	if !ok || !IsLength(v) {
		return fallback
	}
	return ParseLength(v)
}

// Int 返回整数属性。
func (s Styles) Int(style string, kind Kind, attr string, fallback int) int {
	v, ok := s.Get(style, kind, attr)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Bool 返回布尔属性（true/yes/1）。
func (s Styles) Bool(style string, kind Kind, attr string, fallback bool) bool {
	v, ok := s.Get(style, kind, attr)
	if !ok {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	}
	return fallback
}
