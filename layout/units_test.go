package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度。
func TestPtMmRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.001, 1, 12, 14.4, 72, 1000} {
		if diff := math.Abs(PT(v).ToMM()*MmToPt - v); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt diff=%g", v, diff)
		}
		if diff := math.Abs(MM(v).ToPT()*PtToMm - v); diff > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%gmm diff=%g", v, diff)
		}
	}
}

func TestParseLengthUnits(t *testing.T) {
	cases := map[string]float64{
		"10":    10,
		"10mm":  10,
		"1cm":   10,
		"1in":   25.4,
		"72pt":  25.4,
		" 2MM ": 2,
		"abc":   0,
		"":      0,
	}
	for in, want := range cases {
		if got := ParseLength(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseLength(%q) 期望 %g，实际 %g", in, want, got)
		}
	}
	if got := ParseDimension("50%", 80); got != 40 {
		t.Fatalf("50%% of 80 期望 40，实际 %g", got)
	}
	if !IsLength("3.5pt") || IsLength("bold") {
		t.Fatalf("IsLength 判断错误")
	}
}

func TestLengthArithmeticKeepsUnit(t *testing.T) {
	l := IN(1).Add(MM(25.4))
	if l.Unit != UnitIN || math.Abs(l.Value-2) > 1e-9 {
		t.Fatalf("1in+25.4mm 期望 2in，实际 %s", l)
	}
	if s := PT(12).Scale(0.5).String(); s != "6pt" {
		t.Fatalf("期望 6pt，实际 %s", s)
	}
	if d := MM(10).Sub(PT(72 / 25.4)); math.Abs(d.Value-9) > 1e-9 {
		t.Fatalf("10mm-1mm 期望 9mm，实际 %s", d)
	}
}

func TestLineHeightSpec(t *testing.T) {
	spec, ok := ParseLineHeight("1.5x")
	if !ok || spec.Resolve(4) != 6 {
		t.Fatalf("1.5x 在 4mm 字号下应为 6mm")
	}
	spec, ok = ParseLineHeight("14pt")
	if !ok || math.Abs(spec.Resolve(1)-14*PtToMm) > 1e-9 {
		t.Fatalf("14pt 绝对行高解析错误")
	}
	if _, ok := ParseLineHeight("-1x"); ok {
		t.Fatalf("负行高应当无效")
	}
}

func TestRectHelpers(t *testing.T) {
	page := Rect{Width: 210, Height: 297}
	body := page.Inset(Margin{Top: 20, Right: 15, Bottom: 20, Left: 15})
	if body.X != 15 || body.Width != 180 || body.Bottom() != 277 {
		t.Fatalf("Inset 结果错误: %+v", body)
	}
	if !page.Contains(body) || body.Contains(page) {
		t.Fatalf("Contains 判断错误")
	}
}
