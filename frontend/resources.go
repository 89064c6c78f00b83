package frontend

import (
	"fmt"
	"strings"

	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
)

// DefaultFont 是未声明任何字体时使用的 Body 字体。
var DefaultFont = layout.FontResource{
	Name:      "Body",
	Src:       "builtin:latin-modern",
	Family:    "Body",
	IsBuiltin: true,
}

func collectResources(doc *dsl.Document) (layout.ResourceSet, map[string]layout.Style, error) {
	res := layout.ResourceSet{
		Fonts:  map[string]layout.FontResource{},
		Colors: map[string]layout.Color{},
		Images: map[string]layout.ImageResource{},
	}
	rawStyles := map[string]layout.Style{}

	addStyle := func(cmd *dsl.Command) error {
		style := parseStyleResource(cmd)
		if style.Name == "" {
			return fmt.Errorf("第 %d 行：style 缺少名称", cmd.Pos.Line)
		}
		if _, dup := rawStyles[style.Name]; dup {
			return fmt.Errorf("第 %d 行：style %s 重复定义", cmd.Pos.Line, style.Name)
		}
		rawStyles[style.Name] = style
		return nil
	}

	for _, section := range doc.Sections {
		switch {
		case section.Resources != nil:
			for _, cmd := range section.Resources.Block.Commands() {
				switch cmd.Name {
				case "font":
					font := parseFontResource(cmd)
					if font.Name != "" {
						res.Fonts[font.Name] = font
					}
				case "color":
					name, value := parseColorResource(cmd)
					if name == "" || value == "" {
						continue
					}
					c, err := layout.ParseColor(value)
					if err != nil {
						return res, nil, fmt.Errorf("颜色 %s: %w", name, err)
					}
					res.Colors[name] = c
				case "image":
					image := parseImageResource(cmd)
					if image.Name != "" {
						res.Images[image.Name] = image
					}
				case "style":
					if err := addStyle(cmd); err != nil {
						return res, nil, err
					}
				default:
					return res, nil, fmt.Errorf("第 %d 行：未知的资源类型 %s", cmd.Pos.Line, cmd.Name)
				}
			}
		case section.Styles != nil:
			for _, cmd := range section.Styles.Block.Commands() {
				if cmd.Name != "style" {
					return res, nil, fmt.Errorf("第 %d 行：styles 中只能出现 style，得到 %s", cmd.Pos.Line, cmd.Name)
				}
				if err := addStyle(cmd); err != nil {
					return res, nil, err
				}
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts[DefaultFont.Name] = DefaultFont
	}
	return res, rawStyles, nil
}

func collectMeta(doc *dsl.Document, expand func(string) string) layout.DocumentMeta {
	meta := layout.DocumentMeta{
		Creator: "Quire",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			value := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = expand(valueToString(value))
			case "author":
				meta.Author = expand(valueToString(value))
			case "subject":
				meta.Subject = expand(valueToString(value))
			case "creator":
				meta.Creator = valueToString(value)
			case "keywords":
				meta.Keywords = valueToStringSlice(value)
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) layout.FontResource {
	name := cmd.Arg(0)
	if name == "" {
		return layout.FontResource{}
	}
	font := layout.FontResource{Name: name, Family: name}
	for key, value := range cmd.Block.Assignments() {
		switch key {
		case "src":
			font.Src = valueToString(value)
			font.IsBuiltin = strings.HasPrefix(font.Src, "builtin:")
		case "style":
			font.Style = valueToString(value)
		case "family":
			font.Family = valueToString(value)
		}
	}
	if font.Src == "" {
		font.Src = DefaultFont.Src
		font.IsBuiltin = true
	}
	return font
}

func parseImageResource(cmd *dsl.Command) layout.ImageResource {
	name := cmd.Arg(0)
	if name == "" {
		return layout.ImageResource{}
	}
	image := layout.ImageResource{Name: name}
	for key, value := range cmd.Block.Assignments() {
		switch key {
		case "src":
			image.Src = valueToString(value)
		case "width":
			image.Width = layout.ParseLength(valueToString(value))
		case "height":
			image.Height = layout.ParseLength(valueToString(value))
		}
	}
	return image
}

// parseStyleResource 解析 `style name [extends parent] { key: value }`。
func parseStyleResource(cmd *dsl.Command) layout.Style {
	style := layout.Style{
		Name:  cmd.Arg(0),
		Props: map[string]string{},
	}
	if strings.EqualFold(cmd.Arg(1), "extends") {
		style.Extends = cmd.Arg(2)
	}
	for key, value := range cmd.Block.Assignments() {
		if val := valueToString(value); val != "" {
			style.Props[key] = val
		}
	}
	return style
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}
