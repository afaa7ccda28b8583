package client

import (
	"context"
	"fmt"

	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/types"
)

// Preflight estimates the cost of req and checks it against balance. A nil balance
// skips the check. The returned error wraps estimate.ErrInsufficientCredits when the
// balance is too low.
func Preflight(est *estimate.Estimator, req *types.SubmitRequest, balance *int) (types.Quote, error) {
	q := est.Quote(req.Task, req.ContentSize(), req.Model)
	if balance == nil {
		return q, nil
	}
	if err := estimate.CheckBalance(q.Credits, *balance); err != nil {
		return q, err
	}
	return q, nil
}

// Run is one submission: the quote used for the preflight check and the decoded result.
type Run struct {
	Quote  types.Quote
	Result *types.AnalysisResult
}

// SubmitChecked fetches the balance, runs Preflight and only then submits. Nothing is
// sent when the estimate exceeds the balance.
func (c *Client) SubmitChecked(ctx context.Context, est *estimate.Estimator, req *types.SubmitRequest) (*Run, error) {
	balance, err := c.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch credit balance: %w", err)
	}

	q, err := Preflight(est, req, &balance)
	if err != nil {
		return &Run{Quote: q}, err
	}

	res, err := c.Submit(ctx, req)
	if err != nil {
		return &Run{Quote: q}, err
	}
	return &Run{Quote: q, Result: res}, nil
}
