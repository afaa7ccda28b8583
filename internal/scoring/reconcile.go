// Package scoring resolves the fit score displayed for a resume analysis.
//
// The score reported by the backend is trusted by default. A local heuristic built
// from the number of strengths and red flags replaces it only when the reported value
// is implausibly low for the evidence; a high reported score is never overridden.
package scoring

import (
	"math"

	"github.com/jonathan/taskhub/internal/types"
)

// Source identifies where a reconciled score came from.
type Source string

// Score sources
const (
	SourceReported  Source = "reported"
	SourceHeuristic Source = "heuristic"
	SourceOverride  Source = "override"
	SourceEmpty     Source = "empty"
)

// OverrideRule replaces a reported score below Below when the strength count
// satisfies MinStrengths (inclusive) or, if Exclusive is set, exceeds it.
type OverrideRule struct {
	Below        float64 `json:"below"`
	MinStrengths int     `json:"min_strengths"`
	Exclusive    bool    `json:"exclusive,omitempty"`
}

func (r OverrideRule) matches(reported float64, strengths int) bool {
	if reported >= r.Below {
		return false
	}
	if r.Exclusive {
		return strengths > r.MinStrengths
	}
	return strengths >= r.MinStrengths
}

// Thresholds holds the heuristic weights and override rules.
type Thresholds struct {
	Base               int            `json:"base"`
	StrengthWeight     int            `json:"strength_weight"`
	RedFlagWeight      int            `json:"red_flag_weight"`
	MaxScore           int            `json:"max_score"`
	MinWithStrengths   int            `json:"min_with_strengths"`
	MinWithoutStrength int            `json:"min_without_strengths"`
	Overrides          []OverrideRule `json:"overrides"`
}

// DefaultThresholds returns the thresholds used by the web client.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Base:               75,
		StrengthWeight:     5,
		RedFlagWeight:      3,
		MaxScore:           95,
		MinWithStrengths:   60,
		MinWithoutStrength: 50,
		Overrides: []OverrideRule{
			{Below: 50, MinStrengths: 2},
			{Below: 30, MinStrengths: 1},
			{Below: 70, MinStrengths: 4, Exclusive: true},
		},
	}
}

// Result is a reconciled score and the reason it was chosen.
type Result struct {
	Score     int    `json:"score"`
	Source    Source `json:"source"`
	Heuristic int    `json:"heuristic"`
	Reported  *int   `json:"reported,omitempty"`
}

// Reconciler applies Thresholds to resume analyses.
type Reconciler struct {
	thresholds Thresholds
}

// New creates a Reconciler with the given thresholds.
func New(t Thresholds) *Reconciler {
	return &Reconciler{thresholds: t}
}

// NewDefault creates a Reconciler with DefaultThresholds.
func NewDefault() *Reconciler {
	return New(DefaultThresholds())
}

// Thresholds returns the thresholds in use.
func (r *Reconciler) Thresholds() Thresholds {
	return r.thresholds
}

// Heuristic computes the fallback score from strength and red flag counts.
func (r *Reconciler) Heuristic(strengths, redFlags int) int {
	t := r.thresholds
	score := t.Base + t.StrengthWeight*strengths - t.RedFlagWeight*redFlags

	floor := t.MinWithoutStrength
	if strengths > 0 {
		floor = t.MinWithStrengths
	}
	return clamp(score, floor, t.MaxScore)
}

// Reconcile returns the score to display, in [0, 100].
func (r *Reconciler) Reconcile(a types.ResumeAnalysis) int {
	return r.Explain(a).Score
}

// Explain returns the score to display together with its source.
func (r *Reconciler) Explain(a types.ResumeAnalysis) Result {
	strengths := len(a.Strengths)
	heuristic := r.Heuristic(strengths, len(a.RedFlags))

	if a.FitScore == nil || math.IsNaN(*a.FitScore) {
		if a.IsEmpty() {
			return Result{Score: 0, Source: SourceEmpty, Heuristic: heuristic}
		}
		return Result{Score: heuristic, Source: SourceHeuristic, Heuristic: heuristic}
	}

	reported := int(math.Round(math.Max(0, math.Min(100, *a.FitScore))))
	res := Result{Heuristic: heuristic, Reported: &reported}

	for _, rule := range r.thresholds.Overrides {
		if rule.matches(float64(reported), strengths) {
			res.Score = heuristic
			res.Source = SourceOverride
			return res
		}
	}

	res.Score = reported
	res.Source = SourceReported
	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
