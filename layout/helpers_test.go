package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordTypesetter 是测试用排版器：每 perLine 个词一行，行高等于字号。
// 不依赖宽度，使各场景的高度完全可预测。
type wordTypesetter struct {
	perLine int
	calls   int
}

func (s *wordTypesetter) LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	s.calls++
	words := strings.Fields(content)
	per := max(s.perLine, 1)
	var lines []TextLine
	for i := 0; i < len(words); i += per {
		end := min(i+per, len(words))
		lines = append(lines, TextLine{Content: strings.Join(words[i:end], " "), Width: width, Height: fontSize})
	}
	return lines, nil
}

// widthTypesetter 每 10mm 宽放一个词，宽度变化时折行随之变化。
type widthTypesetter struct{}

func (widthTypesetter) LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	words := strings.Fields(content)
	per := max(int(width/10), 1)
	var lines []TextLine
	for i := 0; i < len(words); i += per {
		end := min(i+per, len(words))
		lines = append(lines, TextLine{Content: strings.Join(words[i:end], " "), Width: width, Height: fontSize})
	}
	return lines, nil
}

// 默认样式：5mm 字号、1 倍行高，因此每行正好 5mm。
var testStyles = MustStyles(map[string]Style{
	DefaultStyle: {Props: map[string]string{"size": "5mm", "line-height": "1x"}},
})

func testTemplate(height float64, columns int) *PageTemplate {
	return &PageTemplate{Name: "test", Width: 100, Height: height, Columns: columns, Chain: "body"}
}

func newTestDocument(t *testing.T, tpl *PageTemplate, items ...Flowable) *Document {
	t.Helper()
	doc := NewDocument(Templates{First: tpl}, testStyles, Options{Typesetter: &wordTypesetter{perLine: 2}})
	require.NoError(t, doc.AddChain(NewChain("body", items...)))
	return doc
}

func paginate(t *testing.T, tpl *PageTemplate, items ...Flowable) (*Document, *Result) {
	t.Helper()
	doc := newTestDocument(t, tpl, items...)
	res, err := doc.Paginate()
	require.NoError(t, err)
	return doc, res
}

func findRegion(t *testing.T, p Page, name string) Region {
	t.Helper()
	for _, r := range p.Regions {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("第 %d 页没有区域 %s", p.Number, name)
	return Region{}
}

func fragmentIDs(r Region) []string {
	ids := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		ids = append(ids, f.Flowable)
	}
	return ids
}

// words 生成 n 个占位词。
func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return strings.Join(w, " ")
}

func warningsOf(res *Result, kind WarningKind) []Warning {
	var out []Warning
	for _, w := range res.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
