//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnalysisResult is the payload returned by the backend for every task.
// Task holds the display name of the task ("Resume Analysis", ...) and selects
// the shape of Result.StructuredData.
type AnalysisResult struct {
	Task            string        `json:"task"`
	Model           string        `json:"model"`
	EstimatedTokens int           `json:"estimated_tokens"`
	CreditsUsed     int           `json:"credits_used"`
	TimeTakenSec    float64       `json:"time_taken_sec"`
	Result          ResultPayload `json:"result"`
}

// ResultPayload carries the task summary and the task-specific structured data.
type ResultPayload struct {
	Summary        string          `json:"summary"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
}

// UnmarshalJSON decodes the envelope leniently: a member with an unexpected type is
// treated as missing instead of failing the whole payload. The payload itself must
// still be a JSON object.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	f, ok := ParseFields(data)
	if !ok {
		return fmt.Errorf("analysis result must be a JSON object")
	}

	inner := f.Object("result")
	*r = AnalysisResult{
		Task:            f.String("task"),
		Model:           f.String("model"),
		EstimatedTokens: f.Int("estimated_tokens"),
		CreditsUsed:     f.Int("credits_used"),
		Result: ResultPayload{
			Summary: inner.String("summary"),
		},
	}
	r.TimeTakenSec, _ = f.Float("time_taken_sec")
	if inner.Has("structured_data") {
		r.Result.StructuredData = inner["structured_data"]
	}
	return nil
}

// Structured returns the structured data as Fields. Missing or non-object data
// yields an empty Fields.
func (r *AnalysisResult) Structured() Fields {
	f, _ := ParseFields(r.Result.StructuredData)
	return f
}

// ResumeAnalysis is the structured data of a resume analysis result.
type ResumeAnalysis struct {
	FitScore        *float64 `json:"fit_score,omitempty"`
	Strengths       []string `json:"strengths"`
	RedFlags        []string `json:"red_flags"`
	FinalVerdict    string   `json:"final_verdict"`
	MatchedSkills   []string `json:"matched_skills,omitempty"`
	MissingSkills   []string `json:"missing_skills,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// IsEmpty reports whether the analysis carries no qualitative signal at all.
func (a ResumeAnalysis) IsEmpty() bool {
	return len(a.Strengths) == 0 && len(a.RedFlags) == 0 && a.FinalVerdict == ""
}

// ResumeAnalysisFrom extracts resume analysis fields, defaulting anything missing.
func ResumeAnalysisFrom(f Fields) ResumeAnalysis {
	a := ResumeAnalysis{
		Strengths:       f.Strings("strengths"),
		RedFlags:        f.Strings("red_flags"),
		FinalVerdict:    f.String("final_verdict"),
		MatchedSkills:   f.Strings("matched_skills"),
		MissingSkills:   f.Strings("missing_skills"),
		Recommendations: f.Strings("recommendations"),
	}
	if v, ok := f.Float("fit_score"); ok {
		a.FitScore = &v
	}
	return a
}

// DetectedObject is a single detection in an object detection result.
type DetectedObject struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box,omitempty"`
}

// ObjectDetection is the structured data of an object detection result.
type ObjectDetection struct {
	Objects []DetectedObject `json:"objects"`
	Counts  map[string]int   `json:"counts"`
}

// ObjectDetectionFrom extracts object detection fields, defaulting anything missing.
func ObjectDetectionFrom(f Fields) ObjectDetection {
	d := ObjectDetection{
		Objects: []DetectedObject{},
		Counts:  f.Counts("counts"),
	}
	for _, obj := range f.Objects("objects") {
		item := DetectedObject{Label: obj.String("label")}
		item.Confidence, _ = obj.Float("confidence")
		var box []float64
		if raw, ok := obj["box"]; ok && json.Unmarshal(raw, &box) == nil {
			item.Box = box
		}
		d.Objects = append(d.Objects, item)
	}
	return d
}

// InvoiceField is one extracted key/value pair of an invoice.
type InvoiceField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// InvoiceExtraction is the structured data of an invoice extraction result.
type InvoiceExtraction struct {
	Fields []InvoiceField `json:"fields"`
}

// InvoiceExtractionFrom flattens the structured data into sorted key/value pairs.
// Nested values are kept as their raw JSON text.
func InvoiceExtractionFrom(f Fields) InvoiceExtraction {
	inv := InvoiceExtraction{Fields: make([]InvoiceField, 0, len(f))}
	for _, key := range f.Keys() {
		value := f.String(key)
		if raw := bytes.TrimSpace(f[key]); len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
			value = string(raw)
		}
		inv.Fields = append(inv.Fields, InvoiceField{Key: key, Value: value})
	}
	return inv
}

// TextSummary is the structured data of a text summarization result.
type TextSummary struct {
	KeyPoints        []string `json:"key_points"`
	CompressionRatio float64  `json:"compression_ratio"`
}

// TextSummaryFrom extracts summarization fields, defaulting anything missing.
func TextSummaryFrom(f Fields) TextSummary {
	s := TextSummary{KeyPoints: f.Strings("key_points")}
	s.CompressionRatio, _ = f.Float("compression_ratio")
	return s
}

// SentimentBreakdown holds the share of each sentiment class.
type SentimentBreakdown struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Sentiment is the structured data of a sentiment analysis result.
type Sentiment struct {
	OverallSentiment string             `json:"overall_sentiment"`
	Breakdown        SentimentBreakdown `json:"sentiment_breakdown"`
}

// SentimentFrom extracts sentiment fields, defaulting anything missing.
func SentimentFrom(f Fields) Sentiment {
	b := f.Object("sentiment_breakdown")
	s := Sentiment{OverallSentiment: f.String("overall_sentiment")}
	s.Breakdown.Positive, _ = b.Float("positive")
	s.Breakdown.Neutral, _ = b.Float("neutral")
	s.Breakdown.Negative, _ = b.Float("negative")
	return s
}

// CustomPrompt is the structured data of a custom prompt result.
type CustomPrompt struct {
	Response string `json:"response"`
}

// CustomPromptFrom extracts the prompt response text.
func CustomPromptFrom(f Fields) CustomPrompt {
	return CustomPrompt{Response: f.String("response")}
}
