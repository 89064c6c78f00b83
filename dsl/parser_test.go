package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/quire/dsl"
)

const sampleDSL = `
doc Report v1 {
  meta {
    title: "Quarterly report"
    keywords: [
      "finance"
      "internal"
    ]
  }

  resources {
    font Body {
      src: "builtin:latin-modern"
    }

    color Accent = #0F62FE
  }

  styles {
    style default {
      size: 11pt
      line-height: 1.4x
    }
    style note extends default {
      size: 8pt
    }
  }

  template first A4 portrait margin 20mm {
    columns: 2
    chain: body
    floats: bottom
    header 10mm {
      text { "Quarterly report" }
    }
    footer 8mm {
      text align center { "${page} / ${pages}" }
    }
  }

  content body {
    section intro "Introduction" {
      text { "Hello, ${user.name}!${note:n1}" }
      footnote n1 { "A note." }
      list ordered {
        item { "first" }
      }
    }
    figure fig1 {
      image Logo width 50mm
      caption { "The logo" }
    }
    table t1 {
      header { "A" "B" }
      row { "1" "2" }
    }
    rule 2mm stroke
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if doc.Name != "Report" || doc.Version != "v1" {
		t.Fatalf("unexpected header %s %s", doc.Name, doc.Version)
	}

	kinds := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Kind())
	}
	if got := strings.Join(kinds, ","); got != "meta,resources,styles,template,content" {
		t.Fatalf("unexpected sections: %s", got)
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" || string(*title.Value.String) != "Quarterly report" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	keywords := meta.Block.Assignments()["keywords"]
	if keywords == nil || keywords.Array == nil || len(keywords.Array.Values) != 2 {
		t.Fatalf("expected 2 keywords, got %+v", keywords)
	}

	styles := doc.Sections[2].Styles.Block.Commands()
	if len(styles) != 2 {
		t.Fatalf("expected 2 styles, got %d", len(styles))
	}
	if styles[1].Arg(0) != "note" || styles[1].Arg(1) != "extends" || styles[1].Arg(2) != "default" {
		t.Fatalf("unexpected style args: %+v", styles[1].Args)
	}
	if lh := styles[0].Block.Assignments()["line-height"]; lh == nil || lh.Number == nil || *lh.Number != "1.4x" {
		t.Fatalf("line-height should be a number with x suffix, got %+v", lh)
	}

	tpl := doc.Sections[3].Template
	if tpl.Name != "first" || tpl.Spec.Size != "A4" {
		t.Fatalf("unexpected template %s %s", tpl.Name, tpl.Spec.Size)
	}
	if len(tpl.Spec.Params) != 3 || tpl.Spec.Params[2].Value != "20mm" {
		t.Fatalf("unexpected template params: %+v", tpl.Spec.Params)
	}
	if cols := tpl.Block.Assignments()["columns"]; cols == nil || cols.Number == nil || *cols.Number != "2" {
		t.Fatalf("columns assignment missing")
	}
	cmds := tpl.Block.Commands()
	if len(cmds) != 2 || cmds[0].Name != "header" || cmds[0].Arg(0) != "10mm" {
		t.Fatalf("unexpected template commands: %+v", cmds)
	}
	footerText := cmds[1].Block.Commands()[0]
	if footerText.Arg(1) != "center" || footerText.Text() != "${page} / ${pages}" {
		t.Fatalf("unexpected footer text: %+v", footerText)
	}

	content := doc.Sections[4].Content
	if content.Chain != "body" {
		t.Fatalf("expected chain body, got %q", content.Chain)
	}
	items := content.Block.Commands()
	if len(items) != 4 {
		t.Fatalf("expected 4 content commands, got %d", len(items))
	}
	section := items[0]
	if section.Name != "section" || section.Arg(0) != "intro" || section.Arg(1) != "Introduction" {
		t.Fatalf("unexpected section: %+v", section.Args)
	}
	if section.Args[1].Type != "String" {
		t.Fatalf("section title should be a string token, got %s", section.Args[1].Type)
	}
	text := section.Block.Commands()[0]
	if !strings.Contains(text.Text(), "${note:n1}") {
		t.Fatalf("expected note reference in text, got %s", text.Text())
	}

	table := items[2]
	header := table.Block.Commands()[0]
	if header.Name != "header" || len(header.Block.Statements) != 2 {
		t.Fatalf("table header should have 2 cells: %+v", header)
	}
	rule := items[3]
	if rule.Arg(0) != "2mm" || rule.Arg(1) != "stroke" || rule.Arg(5) != "" {
		t.Fatalf("unexpected rule args: %+v", rule.Args)
	}
}

func TestContentChainDefaultsToEmpty(t *testing.T) {
	doc, err := dsl.ParseString(`doc D v1 {
  content {
    text { "a" "b" }
  }
}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	content := doc.Sections[0].Content
	if content == nil || content.Chain != "" {
		t.Fatalf("content without a name should leave Chain empty, got %+v", content)
	}
	if got := content.Block.Commands()[0].Text(); got != "a\nb" {
		t.Fatalf("literals should join with newlines, got %q", got)
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	if _, err := dsl.ParseString(`doc D v1 { page A4 { } }`); err == nil {
		t.Fatalf("expected error for unknown section")
	}
}

func TestFieldExpression(t *testing.T) {
	doc, err := dsl.ParseString(`doc D v1 {
  meta {
    subject: data.meta.subject
  }
}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := doc.Sections[0].Meta.Block.Assignments()["subject"]
	if v == nil || v.Expr == nil {
		t.Fatalf("expected expression value")
	}
	if got := tokensToString(v.Expr.Parts); got != "data . meta . subject" {
		t.Fatalf("unexpected expression tokens: %s", got)
	}
}

func tokensToString(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
