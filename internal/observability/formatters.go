// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/results"
	"github.com/jonathan/taskhub/internal/scoring"
	"github.com/jonathan/taskhub/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes boxed, optionally colored summaries. It implements results.Visitor.
type Printer struct {
	out   io.Writer
	color bool
}

var _ results.Visitor = (*Printer)(nil)

// NewPrinter creates a Printer that writes to out without color.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// WithColor returns a copy of the printer that colors titles and highlights.
func (p *Printer) WithColor(enabled bool) *Printer {
	cp := *p
	cp.color = enabled
	return &cp
}

type line struct {
	text  string
	attrs []color.Attribute
}

func plain(format string, args ...any) line {
	return line{text: fmt.Sprintf(format, args...)}
}

func styled(attrs []color.Attribute, format string, args ...any) line {
	return line{text: fmt.Sprintf(format, args...), attrs: attrs}
}

var (
	good  = []color.Attribute{color.FgGreen}
	warn  = []color.Attribute{color.FgYellow}
	bad   = []color.Attribute{color.FgRed}
	title = []color.Attribute{color.FgCyan, color.Bold}
)

func (p *Printer) paint(attrs []color.Attribute, s string) string {
	if !p.color || len(attrs) == 0 {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// printBox prints a box with a title and content lines. Lines are truncated or padded
// before coloring so escape codes do not break the border.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(heading string, lines []line) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", p.paint(title, fit(heading)))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, l := range lines {
		fmt.Fprintf(p.out, "│ %s │\n", p.paint(l.attrs, fit(l.text)))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// fit truncates or pads s to the inner width of a box.
func fit(s string) string {
	width := boxWidth - 4
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-len(r))
}

// wrap splits text into lines no wider than the box, breaking on spaces.
func wrap(text string, indent string) []line {
	width := boxWidth - 4 - len([]rune(indent))
	var out []line
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, plain(""))
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if len([]rune(cur))+1+len([]rune(w)) > width {
				out = append(out, plain("%s%s", indent, cur))
				cur = w
				continue
			}
			cur += " " + w
		}
		out = append(out, plain("%s%s", indent, cur))
	}
	return out
}

func bullets(heading string, items []string, attrs []color.Attribute) []line {
	if len(items) == 0 {
		return nil
	}
	out := []line{plain("%s:", heading)}
	count := min(len(items), maxItemsToShow)
	for _, item := range items[:count] {
		out = append(out, styled(attrs, "  • %s", item))
	}
	if len(items) > maxItemsToShow {
		out = append(out, plain("  ... and %d more", len(items)-maxItemsToShow))
	}
	return append(out, plain(""))
}

func metaLines(m results.Meta) []line {
	model := m.ModelName
	if model == "" {
		model = "-"
	}
	lines := []line{
		plain("Task:     %s", m.TaskName),
		plain("Model:    %s", model),
		plain("Credits:  %d   Tokens: %d   Time: %.1fs", m.CreditsUsed, m.EstimatedTokens, m.TimeTakenSec),
		plain(""),
	}
	if m.Summary != "" {
		lines = append(lines, wrap(m.Summary, "")...)
		lines = append(lines, plain(""))
	}
	return lines
}

func trimTrailingBlank(lines []line) []line {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1].text) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// PrintView prints any result view.
func (p *Printer) PrintView(v results.View) {
	if v == nil {
		return
	}
	v.Accept(p)
}

// VisitResume prints a resume analysis with its reconciled score.
func (p *Printer) VisitResume(v *results.ResumeView) {
	lines := metaLines(v.Meta)

	band := bad
	switch {
	case v.Score.Score >= 75:
		band = good
	case v.Score.Score >= 50:
		band = warn
	}
	lines = append(lines, styled(band, "Fit score: %d/100 (%s)", v.Score.Score, scoreSource(v.Score)), plain(""))

	lines = append(lines, bullets("Strengths", v.Strengths, good)...)
	lines = append(lines, bullets("Red flags", v.RedFlags, bad)...)
	lines = append(lines, bullets("Matched skills", v.MatchedSkills, nil)...)
	lines = append(lines, bullets("Missing skills", v.MissingSkills, warn)...)
	lines = append(lines, bullets("Recommendations", v.Recommendations, nil)...)
	if v.FinalVerdict != "" {
		lines = append(lines, plain("Verdict:"))
		lines = append(lines, wrap(v.FinalVerdict, "  ")...)
	}

	p.printBox("RESUME ANALYSIS", trimTrailingBlank(lines))
}

func scoreSource(r scoring.Result) string {
	switch r.Source {
	case scoring.SourceOverride:
		if r.Reported != nil {
			return fmt.Sprintf("adjusted from %d", *r.Reported)
		}
		return "adjusted"
	case scoring.SourceHeuristic:
		return "estimated"
	case scoring.SourceEmpty:
		return "no data"
	default:
		return "reported"
	}
}

// VisitDetection prints detected objects and per-label counts.
func (p *Printer) VisitDetection(v *results.DetectionView) {
	lines := metaLines(v.Meta)

	if len(v.Objects) > 0 {
		lines = append(lines, plain("Objects (%d):", len(v.Objects)))
		count := min(len(v.Objects), maxItemsToShow)
		for _, obj := range v.Objects[:count] {
			attrs := warn
			if obj.Confidence >= 0.8 {
				attrs = good
			}
			lines = append(lines, styled(attrs, "  • %-20s %5.1f%%", obj.Label, obj.Confidence*100))
		}
		if len(v.Objects) > maxItemsToShow {
			lines = append(lines, plain("  ... and %d more", len(v.Objects)-maxItemsToShow))
		}
		lines = append(lines, plain(""))
	}

	if len(v.Counts) > 0 {
		labels := make([]string, 0, len(v.Counts))
		for label := range v.Counts {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		lines = append(lines, plain("Counts:"))
		for _, label := range labels {
			lines = append(lines, plain("  %-20s %d", label, v.Counts[label]))
		}
	}

	p.printBox("OBJECT DETECTION", trimTrailingBlank(lines))
}

// VisitInvoice prints extracted invoice fields.
func (p *Printer) VisitInvoice(v *results.InvoiceView) {
	lines := metaLines(v.Meta)
	if len(v.Fields) == 0 {
		lines = append(lines, plain("No fields extracted"))
	}
	for _, f := range v.Fields {
		lines = append(lines, plain("%-18s %s", f.Key+":", f.Value))
	}
	p.printBox("INVOICE EXTRACTION", trimTrailingBlank(lines))
}

// VisitSummary prints key points and the compression ratio.
func (p *Printer) VisitSummary(v *results.SummaryView) {
	lines := metaLines(v.Meta)
	lines = append(lines, bullets("Key points", v.KeyPoints, nil)...)
	if v.CompressionRatio > 0 {
		lines = append(lines, plain("Compression: %.0f%%", ratioPercent(v.CompressionRatio)))
	}
	p.printBox("TEXT SUMMARIZATION", trimTrailingBlank(lines))
}

// VisitSentiment prints the overall sentiment and the class shares.
func (p *Printer) VisitSentiment(v *results.SentimentView) {
	lines := metaLines(v.Meta)

	attrs := warn
	switch strings.ToLower(v.OverallSentiment) {
	case "positive":
		attrs = good
	case "negative":
		attrs = bad
	}
	overall := v.OverallSentiment
	if overall == "" {
		overall = "unknown"
	}
	lines = append(lines, styled(attrs, "Overall: %s", overall), plain(""))

	b := v.Breakdown
	scale := 1.0
	if b.Positive+b.Neutral+b.Negative <= 1.0001 {
		scale = 100
	}
	lines = append(lines,
		styled(good, "Positive  %s %5.1f%%", bar(b.Positive*scale), b.Positive*scale),
		plain("Neutral   %s %5.1f%%", bar(b.Neutral*scale), b.Neutral*scale),
		styled(bad, "Negative  %s %5.1f%%", bar(b.Negative*scale), b.Negative*scale),
	)

	p.printBox("SENTIMENT ANALYSIS", lines)
}

// VisitCustomPrompt prints the prompt response.
func (p *Printer) VisitCustomPrompt(v *results.CustomPromptView) {
	meta := v.Meta
	if meta.Summary == v.Response {
		meta.Summary = ""
	}
	lines := metaLines(meta)
	lines = append(lines, wrap(v.Response, "")...)
	p.printBox("CUSTOM PROMPT", trimTrailingBlank(lines))
}

// VisitGeneric prints the summary and the raw structured data of an unknown task.
func (p *Printer) VisitGeneric(v *results.GenericView) {
	lines := metaLines(v.Meta)
	if v.Raw != "" {
		lines = append(lines, plain("Structured data:"))
		for _, l := range strings.Split(v.Raw, "\n") {
			lines = append(lines, plain("%s", l))
		}
	}
	heading := "RESULT"
	if v.TaskName != "" {
		heading = strings.ToUpper(v.TaskName)
	}
	p.printBox(heading, trimTrailingBlank(lines))
}

func ratioPercent(r float64) float64 {
	if r <= 1 {
		return r * 100
	}
	return r
}

// bar draws a 20-cell bar for a percentage.
func bar(percent float64) string {
	const cells = 20
	n := int(math.Round(math.Max(0, math.Min(100, percent)) / 100 * cells))
	return strings.Repeat("█", n) + strings.Repeat("░", cells-n)
}

// PrintQuote prints a cost estimate and, when balance is non-nil, whether it is covered.
func (p *Printer) PrintQuote(q types.Quote, modelName string, balance *int) {
	lines := []line{
		plain("Task:      %s", q.Task.DisplayName()),
		plain("Model:     %s", modelName),
		plain("Rate:      %g credits / 1K tokens", q.Rate),
		plain("Input:     %.0f tokens (scale x%.2f)", q.InputTokens, q.Scale),
		plain("Estimated: %.0f tokens", q.EstimatedTokens),
		plain(""),
		styled(title, "Cost:      ~%d credits", q.Credits),
	}
	if balance != nil {
		if *balance >= q.Credits {
			lines = append(lines, styled(good, "Balance:   %d (ok)", *balance))
		} else {
			lines = append(lines, styled(bad, "Balance:   %d (insufficient, need %d more)", *balance, q.Credits-*balance))
		}
	}
	p.printBox("COST ESTIMATE", lines)
}

// PrintModels prints the catalog grouped by provider, marking the selected model IDs.
func (p *Printer) PrintModels(cat *catalog.Catalog, selected map[string]bool) {
	grouped := cat.ListAll()
	var lines []line
	for i, provider := range cat.Providers() {
		if i > 0 {
			lines = append(lines, plain(""))
		}
		lines = append(lines, plain("%s", provider))
		for _, m := range grouped[provider] {
			marker := " "
			var attrs []color.Attribute
			if selected[m.ID] {
				marker = "*"
				attrs = good
			}
			lines = append(lines, styled(attrs, " %s %-20s %6.1f  %s", marker, m.ID, m.Rate, m.DisplayName))
		}
	}
	p.printBox("MODELS (credits / 1K tokens)", lines)
}

// PrintPreferences prints the model selected for every task.
func (p *Printer) PrintPreferences(prefs types.PreferenceMap, cat *catalog.Catalog) {
	lines := make([]line, 0, len(types.AllTasks))
	for _, task := range types.AllTasks {
		id := prefs[task]
		var attrs []color.Attribute
		if id != catalog.TaskDefault(task) {
			attrs = warn
		}
		lines = append(lines, styled(attrs, "%-20s %s", task.DisplayName(), cat.DisplayName(id)))
	}
	p.printBox("MODEL PREFERENCES", lines)
}
