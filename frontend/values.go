package frontend

import (
	"strconv"
	"strings"

	"github.com/ByLCY/quire/dsl"
)

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}

// parseArgs 拆分命令参数：奇数个参数时第一个是样式名，其余按 key value 成对。
func parseArgs(args []*dsl.Lexeme) (string, map[string]string) {
	attrs := map[string]string{}
	cursor := 0
	var style string
	if len(args)%2 == 1 && args[0].Type == "Ident" {
		style = args[0].Value
		cursor = 1
	}
	for ; cursor+1 < len(args); cursor += 2 {
		attrs[args[cursor].Value] = args[cursor+1].Value
	}
	return style, attrs
}

// literals 返回块内直接出现的字符串字面量。
func literals(block *dsl.Block) []string {
	if block == nil {
		return nil
	}
	var out []string
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			out = append(out, string(stmt.Text.Value))
		}
	}
	return out
}

func isNumber(s string) bool {
	s = strings.TrimSpace(s)
	for _, unit := range []string{"mm", "cm", "in", "pt", "%", "x"} {
		if strings.HasSuffix(s, unit) {
			s = strings.TrimSuffix(s, unit)
			break
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseInt(s string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return fallback
}
