package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Lookup 返回占位符 key 对应的文本；ok 为 false 时保留原占位符。
type Lookup func(key string) (string, bool)

// Expand 将 text 中每个 ${key} 交给 lookup 替换。
// complete 表示所有占位符都已解析。
func Expand(text string, lookup Lookup) (out string, complete bool) {
	complete = true
	if !strings.Contains(text, "${") {
		return text, true
	}
	out = exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-1])
		if key == "" {
			complete = false
			return match
		}
		if v, ok := lookup(key); ok {
			return v
		}
		complete = false
		return match
	})
	return out, complete
}

// Keys 按出现顺序返回 text 中的占位符 key（去重）。
func Keys(text string) []string {
	var keys []string
	seen := map[string]bool{}
	for _, m := range exprPattern.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(m[1])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// Spans 返回 text 中每个占位符的 [start, end) 字节区间。
func Spans(text string) [][]int {
	return exprPattern.FindAllStringIndex(text, -1)
}

// First 依次尝试多个 lookup，返回第一个命中的结果。
func First(lookups ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// Data 将 ${path.to.value} 解析为 data（JSON 解码结果）中的值。
func Data(data any) Lookup {
	return func(key string) (string, bool) {
		if data == nil {
			return "", false
		}
		val, ok := resolvePath(data, key)
		if !ok {
			return "", false
		}
		return fmt.Sprint(val), true
	}
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	out, _ := Expand(text, Data(data))
	return out
}

// Resolve 返回 data 中 path 指向的值，例如 items[0].name。
func Resolve(data any, path string) (any, bool) {
	if data == nil || strings.TrimSpace(path) == "" {
		return nil, false
	}
	return resolvePath(data, strings.TrimSpace(path))
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
