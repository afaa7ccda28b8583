// Package estimate computes client-side credit estimates for task submissions.
//
// The formula mirrors the server pricing closely enough that a user is neither
// blocked by a false "insufficient credits" check nor surprised by a larger charge.
// Estimates always round up and never decrease as the input grows.
package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/types"
)

// ErrInsufficientCredits is returned when a balance does not cover an estimate.
var ErrInsufficientCredits = errors.New("insufficient credits")

// InsufficientCreditsError carries the numbers behind a failed balance check.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: this task needs about %d credits, you have %d", e.Required, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientCredits) match.
func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// Estimator prices tasks from content size and model rate.
type Estimator struct {
	catalog     *catalog.Catalog
	profiles    map[types.TaskType]Profile
	defaultRate float64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithDefaultRate overrides the rate used when no model rate resolves.
func WithDefaultRate(rate float64) Option {
	return func(e *Estimator) {
		if rate > 0 {
			e.defaultRate = rate
		}
	}
}

// WithProfile overrides the pricing constants of one task.
func WithProfile(task types.TaskType, p Profile) Option {
	return func(e *Estimator) {
		e.profiles[task] = p
	}
}

// New creates an Estimator that resolves model rates through cat.
// A nil catalog uses the built-in one.
func New(cat *catalog.Catalog, opts ...Option) *Estimator {
	if cat == nil {
		cat = catalog.Default()
	}
	e := &Estimator{
		catalog:     cat,
		profiles:    DefaultProfiles(),
		defaultRate: DefaultRate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the pricing constants used for task.
func (e *Estimator) Profile(task types.TaskType) Profile {
	if p, ok := e.profiles[task]; ok {
		return p
	}
	return fallbackProfile
}

// InputTokens converts a content size into approximate tokens. File tasks take a
// byte count, text tasks a character count.
func InputTokens(task types.TaskType, size int64) float64 {
	if size <= 0 {
		return 0
	}
	if task.Input() == types.InputFile {
		kb := float64(size) / bytesPerKB
		return kb * charsPerKB / charsPerToken
	}
	return float64(size) / charsPerToken
}

// Estimate returns the credit estimate for a submission. A non-positive rate falls
// back to the default rate.
func (e *Estimator) Estimate(task types.TaskType, size int64, rate float64) int {
	return e.quote(task, size, rate).Credits
}

// Quote resolves the model's rate through the catalog and returns the estimate with
// its breakdown. Unknown models are priced at the default rate.
func (e *Estimator) Quote(task types.TaskType, size int64, modelID string) types.Quote {
	rate := 0.0
	if m, ok := e.catalog.Find(modelID); ok {
		rate = m.Rate
	}
	q := e.quote(task, size, rate)
	q.ModelID = modelID
	return q
}

func (e *Estimator) quote(task types.TaskType, size int64, rate float64) types.Quote {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = e.defaultRate
	}
	if size < 0 {
		size = 0
	}

	p := e.Profile(task)
	input := InputTokens(task, size)

	scale := 1.0
	var tokens float64
	switch p.Mode {
	case Add:
		tokens = p.BaseTokens + input
	default:
		scale = scaleFactor(input, p.ReferenceTokens, p.MaxScale)
		tokens = p.BaseTokens * scale
	}

	credits := int(math.Ceil((tokens / 1000) * rate))
	minCredits := max(p.MinCredits, 1)
	if credits < minCredits {
		credits = minCredits
	}

	return types.Quote{
		Task:            task,
		ContentSize:     size,
		InputTokens:     input,
		Scale:           scale,
		EstimatedTokens: tokens,
		Rate:            rate,
		Credits:         credits,
	}
}

// scaleFactor is max(1, input/reference) clamped to maxScale.
func scaleFactor(input, reference, maxScale float64) float64 {
	if reference <= 0 {
		return 1.0
	}
	scale := math.Max(1.0, input/reference)
	if maxScale >= 1.0 && scale > maxScale {
		scale = maxScale
	}
	return scale
}

// CheckBalance reports whether balance covers credits.
func CheckBalance(credits, balance int) error {
	if balance < credits {
		return &InsufficientCreditsError{Required: credits, Available: balance}
	}
	return nil
}
