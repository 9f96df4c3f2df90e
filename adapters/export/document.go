package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"pairstat/domain/study"
)

// Markdown renders the report as a narrative document
func Markdown(r *study.Report) []byte {
	var b bytes.Buffer
	p := func(format string, args ...interface{}) { fmt.Fprintf(&b, format, args...) }

	p("# Paired comparison: %s vs %s\n\n", r.ConditionA, r.ConditionB)
	p("Report `%s`, mode `%s`, %s distributions, %d participants.\n\n",
		r.ID, r.Mode, r.Distributions, len(r.Participants))

	p("## Descriptive statistics\n\n")
	p("| Series | N | Mean | SD | Min | Max | Status |\n|---|---|---|---|---|---|---|\n")
	for _, row := range []struct {
		label string
		d     study.Descriptive
	}{{r.ConditionA, r.Descriptives.A}, {r.ConditionB, r.Descriptives.B}, {"Delta", r.Descriptives.Delta}} {
		sd := "n/a"
		if row.d.SD != nil {
			sd = num(*row.d.SD)
		}
		p("| %s | %d | %s | %s | %s | %s | %s |\n",
			row.label, row.d.N, num(row.d.Mean), sd, num(row.d.Min), num(row.d.Max), row.d.Status)
	}

	p("\n## Normality of differences\n\n")
	if r.Normality.Available() {
		p("Shapiro-Wilk W = %s, p = %s (n = %d, %s).\n", num(r.Normality.W), num(r.Normality.P), r.Normality.N, r.Normality.Method)
	} else {
		p("Not computed: %s.\n", describeOutcome(r.Normality.Outcome))
	}

	p("\n## Main test\n\n")
	mt := r.MainTest
	switch {
	case !mt.Available():
		p("Not computed: %s.\n", describeOutcome(mt.Outcome))
	case mt.Parametric != nil:
		t := mt.Parametric
		p("Paired t-test: t(%d) = %s, p = %s, mean difference %s.\n", t.DF, num(t.T), num(t.P), num(t.MeanDiff))
	case mt.NonParametric != nil:
		w := mt.NonParametric
		p("Wilcoxon signed-rank: W = %s, z = %s, p = %s over %d non-zero pairs.\n", num(w.W), num(w.Z), num(w.P), w.N)
	}
	if mt.Rationale != "" {
		p("\n_%s_\n", mt.Rationale)
	}
	if mt.Effect != nil {
		p("\nEffect size %s = %s.\n", mt.Effect.Name, num(mt.Effect.Value))
	}

	if len(r.Categories) > 0 {
		p("\n## Categories\n\n")
		p("| Category | Mean %s | Mean %s | Diff | W | z | p | p (Bonferroni) | Sig |\n", r.ConditionA, r.ConditionB)
		p("|---|---|---|---|---|---|---|---|---|\n")
		for _, c := range r.Categories {
			if !c.Available() {
				p("| %s | %s | %s | %s | | | | | %s |\n", c.Category, num(c.MeanA), num(c.MeanB), num(c.MeanDiff), c.Status)
				continue
			}
			p("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n", c.Category, num(c.MeanA), num(c.MeanB),
				num(c.MeanDiff), num(c.W), num(c.Z), num(c.PRaw), num(c.PAdjusted), strings.ReplaceAll(string(c.Significance), "*", `\*`))
		}
	}

	p("\n## Correlations with delta\n\n")
	if len(r.Correlations.Entries) == 0 {
		p("Not computed: %s.\n", describeOutcome(r.Correlations.Outcome))
	} else {
		p("| Covariate | Spearman rho | N | Status |\n|---|---|---|---|\n")
		for _, e := range r.Correlations.Entries {
			rho := ""
			if e.Available() {
				rho = num(e.Rho)
			}
			p("| %s | %s | %d | %s |\n", e.Covariate, rho, e.N, e.Status)
		}
	}

	p("\n## Goodness of fit\n\n")
	if gof := r.GoodnessOfFit; gof.Available() {
		p("| Label | Observed | Expected |\n|---|---|---|\n")
		for i := range gof.Observed {
			label := ""
			if i < len(gof.Labels) {
				label = gof.Labels[i]
			}
			p("| %s | %s | %s |\n", label, num(gof.Observed[i]), num(gof.Expected[i]))
		}
		p("\nchi-square = %s, df = %d, p = %s.\n", num(gof.ChiSq), gof.DF, num(gof.P))
	} else {
		p("Not computed: %s.\n", describeOutcome(gof.Outcome))
	}

	if len(r.Notes) > 0 {
		p("\n## Notes\n\n")
		for _, n := range r.Notes {
			p("- %s\n", n)
		}
	}
	return b.Bytes()
}

// HTML renders the Markdown document as a complete HTML page
func HTML(r *study.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(Markdown(r))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage, Title: "pairstat report"})
	return markdown.Render(doc, renderer)
}

func num(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func describeOutcome(o study.Outcome) string {
	if o.Reason != "" {
		return fmt.Sprintf("%s (%s)", o.Status, o.Reason)
	}
	return string(o.Status)
}
