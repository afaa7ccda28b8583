package results

import (
	"github.com/jonathan/taskhub/internal/scoring"
	"github.com/jonathan/taskhub/internal/types"
)

// Meta holds the fields common to every result.
type Meta struct {
	TaskName        string  `json:"task_name"`
	Model           string  `json:"model"`
	ModelName       string  `json:"model_name"`
	EstimatedTokens int     `json:"estimated_tokens"`
	CreditsUsed     int     `json:"credits_used"`
	TimeTakenSec    float64 `json:"time_taken_sec"`
	Summary         string  `json:"summary"`
}

// View is the rendering-ready form of a result. The set of implementations is closed;
// use a Visitor to handle every kind.
type View interface {
	// Kind names the view variant, e.g. "resume_analysis" or "generic".
	Kind() string
	// Common returns the fields shared by every result.
	Common() Meta
	// Accept dispatches to the matching Visitor method.
	Accept(v Visitor)

	view()
}

// Visitor handles each view variant.
type Visitor interface {
	VisitResume(*ResumeView)
	VisitDetection(*DetectionView)
	VisitInvoice(*InvoiceView)
	VisitSummary(*SummaryView)
	VisitSentiment(*SentimentView)
	VisitCustomPrompt(*CustomPromptView)
	VisitGeneric(*GenericView)
}

// ResumeView renders a resume analysis.
type ResumeView struct {
	Meta
	types.ResumeAnalysis
	Score scoring.Result `json:"score"`
}

// DetectionView renders an object detection result.
type DetectionView struct {
	Meta
	types.ObjectDetection
}

// InvoiceView renders an invoice extraction result.
type InvoiceView struct {
	Meta
	types.InvoiceExtraction
}

// SummaryView renders a text summarization result.
type SummaryView struct {
	Meta
	types.TextSummary
}

// SentimentView renders a sentiment analysis result.
type SentimentView struct {
	Meta
	types.Sentiment
}

// CustomPromptView renders a custom prompt result.
type CustomPromptView struct {
	Meta
	types.CustomPrompt
}

// GenericView renders a result whose task is not recognized: the summary and an
// indented dump of the structured data.
type GenericView struct {
	Meta
	Raw string `json:"raw"`
}

func (v *ResumeView) Kind() string       { return string(types.TaskResumeAnalysis) }
func (v *DetectionView) Kind() string    { return string(types.TaskObjectDetection) }
func (v *InvoiceView) Kind() string      { return string(types.TaskInvoiceExtraction) }
func (v *SummaryView) Kind() string      { return string(types.TaskTextSummarization) }
func (v *SentimentView) Kind() string    { return string(types.TaskSentimentAnalysis) }
func (v *CustomPromptView) Kind() string { return string(types.TaskCustomPrompt) }
func (v *GenericView) Kind() string      { return "generic" }

func (v *ResumeView) Common() Meta       { return v.Meta }
func (v *DetectionView) Common() Meta    { return v.Meta }
func (v *InvoiceView) Common() Meta      { return v.Meta }
func (v *SummaryView) Common() Meta      { return v.Meta }
func (v *SentimentView) Common() Meta    { return v.Meta }
func (v *CustomPromptView) Common() Meta { return v.Meta }
func (v *GenericView) Common() Meta      { return v.Meta }

func (v *ResumeView) Accept(vis Visitor)       { vis.VisitResume(v) }
func (v *DetectionView) Accept(vis Visitor)    { vis.VisitDetection(v) }
func (v *InvoiceView) Accept(vis Visitor)      { vis.VisitInvoice(v) }
func (v *SummaryView) Accept(vis Visitor)      { vis.VisitSummary(v) }
func (v *SentimentView) Accept(vis Visitor)    { vis.VisitSentiment(v) }
func (v *CustomPromptView) Accept(vis Visitor) { vis.VisitCustomPrompt(v) }
func (v *GenericView) Accept(vis Visitor)      { vis.VisitGeneric(v) }

func (*ResumeView) view()       {}
func (*DetectionView) view()    {}
func (*InvoiceView) view()      {}
func (*SummaryView) view()      {}
func (*SentimentView) view()    {}
func (*CustomPromptView) view() {}
func (*GenericView) view()      {}
