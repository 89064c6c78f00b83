package layout

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 三个 4mm 的块依次流入两个 6mm 的分栏：每栏只能放一个，第三个进入新页。
func TestFixedHeightsFillContainersInOrder(t *testing.T) {
	doc, res := paginate(t, testTemplate(6, 2),
		NewRule("p1", "", 4), NewRule("p2", "", 4), NewRule("p3", "", 4))

	require.Len(t, res.Pages, 2)
	assert.Equal(t, []string{"p1"}, fragmentIDs(findRegion(t, res.Pages[0], "column-1")))
	assert.Equal(t, []string{"p2"}, fragmentIDs(findRegion(t, res.Pages[0], "column-2")))
	assert.Equal(t, []string{"p3"}, fragmentIDs(findRegion(t, res.Pages[1], "column-1")))
	assert.Empty(t, fragmentIDs(findRegion(t, res.Pages[1], "column-2")))

	starved := warningsOf(res, WarnChainStarvation)
	require.Len(t, starved, 1)
	assert.Equal(t, 2, starved[0].Page)
	assert.Equal(t, "column-2", starved[0].Container)

	body, _ := doc.Chain("body")
	assert.True(t, body.Drained())
	for i, want := range []string{"p1", "p2", "p3"} {
		s := body.Steps()[i]
		assert.Equal(t, ChainStep{Flowable: want, Part: 0, Final: true, Height: 4}, s)
	}
}

// 脚注只放得下一半：前半留在第 1 页，剩余部分在第 2 页的脚注区继续。
func TestFootnoteContinuesOnNextPage(t *testing.T) {
	note := NewFootnote("n1", "", "1", NewParagraph("n1-body", "", words(20)))
	para := NewParagraph("p1", "", "alpha beta").Mark(0, note)
	_, res := paginate(t, testTemplate(30, 1), para)

	require.Len(t, res.Pages, 2)
	first := findRegion(t, res.Pages[0], "footnotes")
	require.Len(t, first.Fragments, 1)
	assert.Equal(t, "n1", first.Fragments[0].Flowable)
	assert.Equal(t, 0, first.Fragments[0].Part)
	assert.False(t, first.Fragments[0].Final)
	assert.InDelta(t, 25, first.Fragments[0].Height, 1e-9)

	second := findRegion(t, res.Pages[1], "footnotes")
	require.Len(t, second.Fragments, 1)
	assert.Equal(t, 1, second.Fragments[0].Part)
	assert.True(t, second.Fragments[0].Final)
	assert.InDelta(t, 25, second.Fragments[0].Height, 1e-9)

	assert.Equal(t, []string{"p1"}, fragmentIDs(findRegion(t, res.Pages[0], "column-1")))
	assert.Empty(t, warningsOf(res, WarnOverflow))
}

// 比任何容器都高的块在空容器中强制放置、标记溢出，分页正常结束。
func TestOversizedUnitOverflowsAndTerminates(t *testing.T) {
	var buf bytes.Buffer
	tpl := testTemplate(50, 1)
	doc := NewDocument(Templates{First: tpl}, testStyles, Options{
		Typesetter: &wordTypesetter{perLine: 2},
		Logger:     slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, doc.AddChain(NewChain("body", NewRule("big", "", 100), NewRule("small", "", 10))))
	res, err := doc.Paginate()
	require.NoError(t, err)

	require.Len(t, res.Pages, 2)
	col := findRegion(t, res.Pages[0], "column-1")
	assert.True(t, col.Overflow)
	require.Len(t, col.Fragments, 1)
	assert.True(t, col.Fragments[0].Overflow)
	assert.Equal(t, []string{"small"}, fragmentIDs(findRegion(t, res.Pages[1], "column-1")))

	over := warningsOf(res, WarnOverflow)
	require.Len(t, over, 1)
	assert.Equal(t, "big", over[0].Flowable)
	assert.Contains(t, buf.String(), "overflow-tolerated")
}

func TestOversizedFloatPlacedOnFreshPage(t *testing.T) {
	fig := NewFloat("fig", "", NewImage("fig-img", "", "tall.png", 50, 200), nil)
	_, res := paginate(t, testTemplate(100, 1),
		NewParagraph("a", "", "one two"), fig, NewParagraph("b", "", "three four"))

	require.Len(t, res.Pages, 2)
	assert.Equal(t, []string{"a", "fig#anchor", "b"}, fragmentIDs(findRegion(t, res.Pages[0], "column-1")))
	assert.Empty(t, findRegion(t, res.Pages[0], "floats").Fragments)

	floats := findRegion(t, res.Pages[1], "floats")
	require.Len(t, floats.Fragments, 1)
	assert.Equal(t, "fig", floats.Fragments[0].Flowable)
	assert.True(t, floats.Fragments[0].Overflow)
	require.Len(t, res.Pages[1].Images, 1)
	assert.Equal(t, "tall.png", res.Pages[1].Images[0].Path)
}

func TestFloatSharesPageWithAnchor(t *testing.T) {
	for _, tc := range []struct {
		placement FloatPlacement
		floatY    float64
		columnY   float64
	}{
		{FloatsTop, 0, 22},
		{FloatsBottom, 80, 0},
	} {
		t.Run(string(tc.placement), func(t *testing.T) {
			tpl := testTemplate(100, 1)
			tpl.FloatPlacement = tc.placement
			tpl.FloatGap = 2
			fig := NewFloat("fig", "", NewImage("fig-img", "", "a.png", 40, 20), nil)
			_, res := paginate(t, tpl, NewParagraph("a", "", "one two"), fig, NewParagraph("b", "", "three four"))

			require.Len(t, res.Pages, 1)
			floats := findRegion(t, res.Pages[0], "floats")
			assert.Equal(t, []string{"fig"}, fragmentIDs(floats))
			assert.InDelta(t, tc.floatY, floats.Rect.Y, 1e-9)
			assert.InDelta(t, 20, floats.Rect.Height, 1e-9)

			col := findRegion(t, res.Pages[0], "column-1")
			assert.InDelta(t, tc.columnY, col.Rect.Y, 1e-9)
			assert.InDelta(t, 78, col.Capacity, 1e-9)
			assert.Equal(t, []string{"a", "fig#anchor", "b"}, fragmentIDs(col))
		})
	}
}

func TestHeadingKeepsWithNext(t *testing.T) {
	_, res := paginate(t, testTemplate(20, 1),
		NewRule("r", "", 15), NewHeading("h", "", "Title"), NewParagraph("p", "", "a b c d"))

	require.Len(t, res.Pages, 2)
	assert.Equal(t, []string{"r"}, fragmentIDs(findRegion(t, res.Pages[0], "column-1")))
	assert.Equal(t, []string{"h", "p"}, fragmentIDs(findRegion(t, res.Pages[1], "column-1")))
}

func TestSpacingCollapsesAndSkipsContainerTop(t *testing.T) {
	styles := MustStyles(map[string]Style{
		DefaultStyle: {Props: map[string]string{"size": "5mm", "line-height": "1x"}},
		"gap":        {Props: map[string]string{"space-above": "3mm", "space-below": "2mm"}},
	})
	doc := NewDocument(Templates{First: testTemplate(25, 1)}, styles, Options{Typesetter: &wordTypesetter{perLine: 2}})
	require.NoError(t, doc.AddChain(NewChain("body",
		NewParagraph("a", "gap", "x"), NewParagraph("b", "gap", "y"), NewParagraph("c", "gap", "z"), NewParagraph("d", "gap", "w"))))
	res, err := doc.Paginate()
	require.NoError(t, err)

	col := findRegion(t, res.Pages[0], "column-1")
	var ys []float64
	for _, f := range col.Fragments {
		ys = append(ys, f.Y)
	}
	// 0, 5+3, 13+3；第四段 21+3+5 放不下，进入下一页且顶部不加间距。
	assert.Equal(t, []float64{0, 8, 16}, ys)
	next := findRegion(t, res.Pages[1], "column-1")
	require.Len(t, next.Fragments, 1)
	assert.Zero(t, next.Fragments[0].Y)
}

func TestTableRepeatsHeaderRows(t *testing.T) {
	tbl := NewTable("t", "").AddRow(true, "name", "qty")
	for i := 1; i <= 10; i++ {
		tbl.AddRow(false, "item"+strconv.Itoa(i), strconv.Itoa(i))
	}
	_, res := paginate(t, testTemplate(30, 1), tbl)

	// 每行 5mm + 2×1.2mm 内边距；表头加三行正好 29.6mm。
	require.Len(t, res.Pages, 4)
	var body []string
	for _, p := range res.Pages {
		require.Len(t, p.Tables, 1)
		rows := p.Tables[0].Rows
		require.NotEmpty(t, rows)
		assert.True(t, rows[0].IsHeader, "第 %d 页缺少表头", p.Number)
		assert.Equal(t, "name", rows[0].Cells[0].Text.Content)
		for _, r := range rows[1:] {
			assert.False(t, r.IsHeader)
			body = append(body, r.Cells[0].Text.Content)
		}
	}
	want := make([]string, 10)
	for i := range want {
		want[i] = "item" + strconv.Itoa(i+1)
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("表格行不守恒 (-want +got):\n%s", diff)
	}
	parts := findRegion(t, res.Pages[3], "column-1").Fragments
	require.Len(t, parts, 1)
	assert.Equal(t, 3, parts[0].Part)
	assert.True(t, parts[0].Final)
}

func TestOrderedListLabels(t *testing.T) {
	list := NewList("l", "", true,
		NewParagraph("i1", "", "first"), NewParagraph("i2", "", "second"), NewParagraph("i3", "", "third"))
	_, res := paginate(t, testTemplate(50, 1), list)

	var labels, items []string
	for _, tb := range res.Pages[0].Texts {
		if strings.HasSuffix(tb.Content, ".") {
			labels = append(labels, tb.Content)
			assert.Less(t, tb.X, 6.0)
		} else {
			items = append(items, tb.Content)
			assert.InDelta(t, 6, tb.X, 1e-9)
		}
	}
	assert.Equal(t, []string{"1.", "2.", "3."}, labels)
	assert.Equal(t, []string{"first", "second", "third"}, items)
}

func TestReferencesResolvedAfterPagination(t *testing.T) {
	tpl := testTemplate(25, 1)
	tpl.FooterHeight = 5
	tpl.Footer = []Flowable{NewParagraph("folio", "", "${page}/${pages}")}
	doc, res := paginate(t, tpl,
		NewParagraph("see", "", "see ${page:target} ${page:nope}"),
		NewRule("gap", "", 10),
		NewHeading("target", "", "Target"))

	require.Len(t, res.Pages, 2)
	n, ok := doc.PageOf("target")
	require.True(t, ok)
	assert.Equal(t, 2, n)

	texts := func(p Page) []string {
		var out []string
		for _, tb := range p.Texts {
			out = append(out, tb.Content)
		}
		return out
	}
	assert.Equal(t, []string{"1/2", "see 2 ??"}, texts(res.Pages[0]))
	assert.Equal(t, []string{"2/2", "Target"}, texts(res.Pages[1]))

	unresolved := warningsOf(res, WarnUnresolvedReference)
	require.Len(t, unresolved, 1)
	assert.Equal(t, 1, unresolved[0].Page)
	assert.Contains(t, unresolved[0].Message, "page:nope")
}

func TestLabelReferences(t *testing.T) {
	doc := newTestDocument(t, testTemplate(50, 1),
		NewParagraph("ref", "", "${number:sec} ${title:sec}"), NewHeading("sec", "", "Intro"))
	doc.SetLabel("sec", Label{Number: "1.2", Title: "Intro"})
	res, err := doc.Paginate()
	require.NoError(t, err)
	assert.Equal(t, "1.2 Intro", res.Pages[0].Texts[0].Content)
	assert.Empty(t, warningsOf(res, WarnUnresolvedReference))
}

func TestTitleChainAboveColumns(t *testing.T) {
	first := testTemplate(50, 2)
	first.TitleChain = "title"
	first.FloatGap = 2
	other := testTemplate(50, 2)
	doc := NewDocument(Templates{First: first, Other: other}, testStyles, Options{Typesetter: &wordTypesetter{perLine: 2}})
	require.NoError(t, doc.AddChain(NewChain("title", NewHeading("h", "", "Big title"))))
	require.NoError(t, doc.AddChain(NewChain("body", NewParagraph("p", "", words(30)))))
	res, err := doc.Paginate()
	require.NoError(t, err)

	title := findRegion(t, res.Pages[0], "title")
	assert.Equal(t, []string{"h"}, fragmentIDs(title))
	assert.InDelta(t, 5, title.Rect.Height, 1e-9)
	col := findRegion(t, res.Pages[0], "column-1")
	assert.InDelta(t, 7, col.Rect.Y, 1e-9)
	assert.InDelta(t, 43, col.Capacity, 1e-9)

	// 15 行：第一栏 8 行，其余 7 行进入第二栏。
	require.Len(t, res.Pages, 1)
	second := findRegion(t, res.Pages[0], "column-2").Fragments
	require.Len(t, second, 1)
	assert.Equal(t, 1, second[0].Part)
	assert.True(t, second[0].Final)
	assert.InDelta(t, 35, second[0].Height, 1e-9)
}

// 首页单栏 100mm 宽每行 10 词，其余页两栏各 50mm 宽每行 5 词。
func TestParagraphRewrapsAtNewColumnWidth(t *testing.T) {
	ws := make([]string, 60)
	for i := range ws {
		ws[i] = fmt.Sprintf("w%d", i+1)
	}
	doc := NewDocument(Templates{First: testTemplate(20, 1), Other: testTemplate(20, 2)}, testStyles, Options{Typesetter: widthTypesetter{}})
	require.NoError(t, doc.AddChain(NewChain("body", NewParagraph("p", "", strings.Join(ws, " ")))))
	res, err := doc.Paginate()
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)

	var got []string
	for _, p := range res.Pages {
		for _, tb := range p.Texts {
			for _, l := range tb.Lines {
				got = append(got, strings.Fields(l.Content)...)
			}
		}
	}
	assert.Equal(t, ws, got, "每个词恰好出现一次且顺序不变")

	col := findRegion(t, res.Pages[1], "column-1")
	require.Len(t, col.Fragments, 1)
	assert.True(t, col.Fragments[0].Final)
	assert.InDelta(t, 20, col.Fragments[0].Height, 1e-9)
	assert.Empty(t, findRegion(t, res.Pages[1], "column-2").Fragments)
}

func TestHeaderTruncatedAndOutline(t *testing.T) {
	tpl := testTemplate(40, 1)
	tpl.HeaderHeight = 5
	tpl.Header = []Flowable{NewParagraph("hdr", "", "a b c d")}
	doc := NewDocument(Templates{First: tpl}, testStyles, Options{Typesetter: &wordTypesetter{perLine: 2}, Outline: true})
	require.NoError(t, doc.AddChain(NewChain("body", NewParagraph("p", "", "x"))))
	res, err := doc.Paginate()
	require.NoError(t, err)

	assert.Len(t, warningsOf(res, WarnTruncated), 1)
	header := findRegion(t, res.Pages[0], "header")
	assert.InDelta(t, 5, header.Used, 1e-9)
	col := findRegion(t, res.Pages[0], "column-1")
	assert.InDelta(t, 5, col.Rect.Y, 1e-9)
	// header、footnotes、floats、column-1 各一个描边框
	assert.Len(t, res.Pages[0].Boxes, 4)
}

func TestFootnoteRuleDrawn(t *testing.T) {
	tpl := testTemplate(60, 1)
	tpl.FootnoteGap = 4
	note := NewFootnote("n1", "", "1", NewParagraph("n1-body", "", "note text"))
	_, res := paginate(t, tpl, NewParagraph("p", "", "x y").Mark(1, note))

	notes := findRegion(t, res.Pages[0], "footnotes")
	assert.InDelta(t, 55, notes.Rect.Y, 1e-9)
	require.Len(t, res.Pages[0].Lines, 1)
	l := res.Pages[0].Lines[0]
	assert.InDelta(t, 53, l.Y1, 1e-9)
	assert.InDelta(t, 100.0/3, l.X2-l.X1, 1e-9)
	// 脚注区先于分栏输出：编号、脚注正文、正文段落
	var texts []string
	for _, tb := range res.Pages[0].Texts {
		texts = append(texts, tb.Content)
	}
	assert.Equal(t, []string{"1", "note text", "x y"}, texts)
}

func TestConfigurationErrors(t *testing.T) {
	t.Run("margins", func(t *testing.T) {
		tpl := testTemplate(50, 1)
		tpl.Margin = Margin{Top: 30, Bottom: 30}
		doc := newTestDocument(t, tpl, NewRule("r", "", 1))
		_, err := doc.Paginate()
		require.ErrorIs(t, err, ErrConfiguration)
		var geom *GeometryError
		require.ErrorAs(t, err, &geom)
		assert.Equal(t, "body", geom.Container)
		assert.Empty(t, doc.Pages())
	})
	t.Run("column gap", func(t *testing.T) {
		tpl := testTemplate(50, 3)
		tpl.ColumnGap = 60
		_, err := newTestDocument(t, tpl).Paginate()
		var geom *GeometryError
		require.ErrorAs(t, err, &geom)
		assert.Equal(t, "column", geom.Container)
	})
	t.Run("unknown chain", func(t *testing.T) {
		tpl := testTemplate(50, 1)
		tpl.Chain = "missing"
		_, err := newTestDocument(t, tpl).Paginate()
		require.ErrorIs(t, err, ErrUnknownChain)
		require.ErrorIs(t, err, ErrConfiguration)
	})
	t.Run("unbound chain", func(t *testing.T) {
		doc := newTestDocument(t, testTemplate(50, 1))
		require.NoError(t, doc.AddChain(NewChain("aside")))
		_, err := doc.Paginate()
		require.ErrorIs(t, err, ErrConfiguration)
		assert.NotErrorIs(t, err, ErrUnknownChain)
	})
	t.Run("first page chain overflows", func(t *testing.T) {
		first := testTemplate(30, 1)
		first.TitleChain = "title"
		doc := NewDocument(Templates{First: first, Other: testTemplate(30, 1)}, testStyles, Options{Typesetter: &wordTypesetter{perLine: 2}})
		require.NoError(t, doc.AddChain(NewChain("title", NewParagraph("t", "", words(20)))))
		require.NoError(t, doc.AddChain(NewChain("body", NewParagraph("p", "", words(2)))))
		_, err := doc.Paginate()
		require.ErrorIs(t, err, ErrConfiguration)
		assert.NotErrorIs(t, err, ErrNoProgress)
		assert.ErrorContains(t, err, "title")
		assert.Len(t, doc.Pages(), 1)
	})
	t.Run("duplicate chain", func(t *testing.T) {
		doc := newTestDocument(t, testTemplate(50, 1))
		require.ErrorIs(t, doc.AddChain(NewChain("body")), ErrDuplicateChain)
	})
	t.Run("no templates", func(t *testing.T) {
		doc := NewDocument(Templates{}, testStyles, Options{})
		_, err := doc.Paginate()
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestEmptyDocumentHasOnePage(t *testing.T) {
	_, res := paginate(t, testTemplate(50, 1))
	require.Len(t, res.Pages, 1)
	assert.Len(t, warningsOf(res, WarnChainStarvation), 1)
}

func TestSheetsBackResultPages(t *testing.T) {
	doc, res := paginate(t, testTemplate(20, 1), NewParagraph("p", "", words(20)))
	require.Len(t, res.Pages, 3)
	require.Len(t, doc.Pages(), len(res.Pages))
	for i, s := range doc.Pages() {
		assert.Equal(t, res.Pages[i].Number, s.Number)
		assert.InDelta(t, 20, res.Pages[i].Height, 1e-9)
	}
}

func TestPaginateRunsOnce(t *testing.T) {
	doc := newTestDocument(t, testTemplate(50, 1), NewRule("r", "", 1))
	_, err := doc.Paginate()
	require.NoError(t, err)
	_, err = doc.Paginate()
	require.Error(t, err)
}

func TestMaxPagesStopsRunaway(t *testing.T) {
	var items []Flowable
	for i := range 10 {
		items = append(items, NewRule(fmt.Sprintf("r%d", i), "", 40))
	}
	doc := NewDocument(Templates{First: testTemplate(50, 1)}, testStyles, Options{MaxPages: 3})
	require.NoError(t, doc.AddChain(NewChain("body", items...)))
	_, err := doc.Paginate()
	require.ErrorIs(t, err, ErrNoProgress)
	assert.Len(t, doc.Pages(), 3)
}

// randomDocument 构造随机内容：规则块、段落（可能带脚注）、浮动体、
// 标题、表格与列表。
func randomDocument(r *rand.Rand) (items []Flowable, notes []string, floats []string) {
	n := 10 + r.IntN(40)
	for i := range n {
		id := fmt.Sprintf("x%d", i)
		switch r.IntN(6) {
		case 0:
			items = append(items, NewRule(id, "", 1+r.Float64()*70))
		case 1:
			p := NewParagraph(id, "", words(1+r.IntN(30)))
			if r.IntN(2) == 0 {
				nid := fmt.Sprintf("n%d", len(notes)+1)
				notes = append(notes, nid)
				p.Mark(0, NewFootnote(nid, "", strconv.Itoa(len(notes)), NewParagraph(nid+"-body", "", words(1+r.IntN(24)))))
			}
			items = append(items, p)
		case 2:
			floats = append(floats, id)
			items = append(items, NewFloat(id, "", NewImage(id+"-img", "", "f.png", 40, 5+r.Float64()*100), NewParagraph(id+"-cap", "", "caption")))
		case 3:
			items = append(items, NewHeading(id, "", words(1+r.IntN(4))))
		case 4:
			tbl := NewTable(id, "").AddRow(true, "h1", "h2")
			for k := range 1 + r.IntN(8) {
				tbl.AddRow(false, "c"+strconv.Itoa(k), "d")
			}
			items = append(items, tbl)
		case 5:
			list := NewList(id, "", r.IntN(2) == 0)
			for k := range 1 + r.IntN(4) {
				list.Append(NewParagraph(fmt.Sprintf("%s-%d", id, k), "", words(1+r.IntN(6))))
			}
			items = append(items, list)
		}
	}
	return items, notes, floats
}

func randomTemplate(r *rand.Rand, name string) *PageTemplate {
	tpl := &PageTemplate{
		Name:         name,
		Width:        120,
		Height:       60,
		Margin:       Margin{Top: 5, Right: 5, Bottom: 5, Left: 5},
		Columns:      1 + r.IntN(3),
		ColumnGap:    4,
		Chain:        "body",
		FloatGap:     float64(r.IntN(4)),
		FootnoteGap:  float64(r.IntN(4)),
		NoteSpacing:  float64(r.IntN(2)),
		FloatSpacing: float64(r.IntN(2)),
	}
	if r.IntN(2) == 0 {
		tpl.FloatPlacement = FloatsTop
	}
	return tpl
}

// 随机文档上检查守恒、容量与顺序不变量，并确认分页终止。
func TestRandomDocumentsInvariants(t *testing.T) {
	for seed := range uint64(60) {
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			r := rand.New(rand.NewPCG(seed, seed*7+1))
			items, notes, floats := randomDocument(r)
			tpls := Templates{First: randomTemplate(r, "first"), Other: randomTemplate(r, "other")}
			doc := NewDocument(tpls, testStyles, Options{Typesetter: &wordTypesetter{perLine: 2}, MaxPages: 500})
			require.NoError(t, doc.AddChain(NewChain("body", items...)))
			res, err := doc.Paginate()
			require.NoError(t, err)
			require.NotEmpty(t, res.Pages)

			body, _ := doc.Chain("body")
			require.True(t, body.Drained())
			checkConservation(t, items, body.Steps())

			var placed []ChainStep
			var noteFrags, floatFrags []FragmentInfo
			for _, p := range res.Pages {
				// 溢出的浮动体或脚注会挤占所有分栏
				spaceOverflow := false
				for _, reg := range p.Regions {
					if reg.Kind != "column" {
						spaceOverflow = spaceOverflow || reg.Overflow
					}
				}
				for _, reg := range p.Regions {
					switch reg.Kind {
					case "column":
						if !spaceOverflow && !regionOverflows(reg) {
							assert.LessOrEqual(t, reg.Used, reg.Capacity+1e-6, "第 %d 页 %s 超出容量", p.Number, reg.Name)
						}
						for _, f := range reg.Fragments {
							placed = append(placed, ChainStep{Flowable: strings.TrimSuffix(f.Flowable, "#anchor"), Part: f.Part, Final: f.Final})
						}
					case "footnotes":
						noteFrags = append(noteFrags, reg.Fragments...)
					case "floats":
						floatFrags = append(floatFrags, reg.Fragments...)
					}
				}
			}

			var steps []ChainStep
			for _, s := range body.Steps() {
				steps = append(steps, ChainStep{Flowable: s.Flowable, Part: s.Part, Final: s.Final})
			}
			if diff := cmp.Diff(steps, placed); diff != "" {
				t.Fatalf("容器中的片段与内容链提交记录不一致 (-steps +placed):\n%s", diff)
			}

			var floatIDs []string
			for _, f := range floatFrags {
				floatIDs = append(floatIDs, f.Flowable)
			}
			assert.Equal(t, floats, floatIDs, "浮动体应各出现一次且保持顺序")

			var order []string
			parts := map[string]int{}
			for _, f := range noteFrags {
				require.Equal(t, parts[f.Flowable], f.Part, "脚注 %s 的片段不连续", f.Flowable)
				if f.Part == 0 {
					order = append(order, f.Flowable)
				}
				parts[f.Flowable]++
				if f.Final {
					parts[f.Flowable] = -1
				}
			}
			assert.Equal(t, notes, order, "脚注顺序应与标记顺序一致")
			for _, id := range notes {
				assert.Equal(t, -1, parts[id], "脚注 %s 未完整放置", id)
			}
		})
	}
}

func regionOverflows(reg Region) bool {
	if reg.Overflow {
		return true
	}
	for _, f := range reg.Fragments {
		if f.Overflow {
			return true
		}
	}
	return false
}

// checkConservation 确认每个内容项按顺序出现，分片编号连续且最后一片为 Final。
func checkConservation(t *testing.T, items []Flowable, steps []ChainStep) {
	t.Helper()
	k, part := 0, 0
	for _, s := range steps {
		require.Less(t, k, len(items), "多出的提交 %+v", s)
		require.Equal(t, items[k].ID(), s.Flowable)
		require.Equal(t, part, s.Part)
		if s.Final {
			k, part = k+1, 0
		} else {
			part++
		}
	}
	require.Equal(t, len(items), k, "有内容项未被完整放置")
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: WarnOverflow, Page: 3, Message: "too tall"}
	assert.Equal(t, "page 3 overflow-tolerated: too tall", w.String())
	assert.True(t, errors.Is(&GeometryError{Template: "a"}, ErrConfiguration))
}
