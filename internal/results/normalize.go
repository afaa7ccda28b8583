// Package results turns backend task results into task-specific views.
//
// Dispatch is by the result's "task" display name, matched exactly. Unknown names
// produce a GenericView; missing or mistyped fields become zero values. Rendering never
// fails once a payload has been decoded.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/scoring"
	"github.com/jonathan/taskhub/internal/types"
)

// Normalizer builds views from analysis results.
type Normalizer struct {
	reconciler *scoring.Reconciler
	catalog    *catalog.Catalog
}

// New creates a Normalizer. Nil arguments use the defaults.
func New(reconciler *scoring.Reconciler, cat *catalog.Catalog) *Normalizer {
	if reconciler == nil {
		reconciler = scoring.NewDefault()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &Normalizer{reconciler: reconciler, catalog: cat}
}

// Decode parses a backend payload into an AnalysisResult.
func Decode(data []byte) (*types.AnalysisResult, error) {
	var res types.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &res, nil
}

// RenderJSON decodes a payload and renders it.
func (n *Normalizer) RenderJSON(data []byte) (View, error) {
	res, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return n.Render(res), nil
}

// Render selects the view for the result's task and fills it from the structured data.
func (n *Normalizer) Render(res *types.AnalysisResult) View {
	if res == nil {
		res = &types.AnalysisResult{}
	}
	meta := n.meta(res)
	data := res.Structured()

	task, ok := types.TaskFromDisplayName(res.Task)
	if !ok {
		return &GenericView{Meta: meta, Raw: rawDump(res.Result.StructuredData)}
	}

	switch task {
	case types.TaskResumeAnalysis:
		analysis := types.ResumeAnalysisFrom(data)
		return &ResumeView{
			Meta:           meta,
			ResumeAnalysis: analysis,
			Score:          n.reconciler.Explain(analysis),
		}
	case types.TaskObjectDetection:
		return &DetectionView{Meta: meta, ObjectDetection: types.ObjectDetectionFrom(data)}
	case types.TaskInvoiceExtraction:
		return &InvoiceView{Meta: meta, InvoiceExtraction: types.InvoiceExtractionFrom(data)}
	case types.TaskTextSummarization:
		return &SummaryView{Meta: meta, TextSummary: types.TextSummaryFrom(data)}
	case types.TaskSentimentAnalysis:
		return &SentimentView{Meta: meta, Sentiment: types.SentimentFrom(data)}
	case types.TaskCustomPrompt:
		prompt := types.CustomPromptFrom(data)
		if prompt.Response == "" {
			prompt.Response = res.Result.Summary
		}
		return &CustomPromptView{Meta: meta, CustomPrompt: prompt}
	default:
		return &GenericView{Meta: meta, Raw: rawDump(res.Result.StructuredData)}
	}
}

func (n *Normalizer) meta(res *types.AnalysisResult) Meta {
	return Meta{
		TaskName:        res.Task,
		Model:           res.Model,
		ModelName:       n.catalog.DisplayName(res.Model),
		EstimatedTokens: res.EstimatedTokens,
		CreditsUsed:     res.CreditsUsed,
		TimeTakenSec:    res.TimeTakenSec,
		Summary:         res.Result.Summary,
	}
}

// rawDump pretty-prints structured data for the generic view.
func rawDump(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
