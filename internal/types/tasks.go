// Package types provides type definitions for structured data used throughout the task hub.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// TaskType identifies one of the supported AI operations.
type TaskType string

// Supported task types
const (
	TaskResumeAnalysis    TaskType = "resume_analysis"
	TaskObjectDetection   TaskType = "object_detection"
	TaskInvoiceExtraction TaskType = "invoice_extraction"
	TaskTextSummarization TaskType = "text_summarization"
	TaskSentimentAnalysis TaskType = "sentiment_analysis"
	TaskCustomPrompt      TaskType = "custom_prompt"
)

// AllTasks lists every task type in display order.
var AllTasks = []TaskType{
	TaskResumeAnalysis,
	TaskObjectDetection,
	TaskInvoiceExtraction,
	TaskTextSummarization,
	TaskSentimentAnalysis,
	TaskCustomPrompt,
}

var displayNames = map[TaskType]string{
	TaskResumeAnalysis:    "Resume Analysis",
	TaskObjectDetection:   "Object Detection",
	TaskInvoiceExtraction: "Invoice Extraction",
	TaskTextSummarization: "Text Summarization",
	TaskSentimentAnalysis: "Sentiment Analysis",
	TaskCustomPrompt:      "Custom Prompt",
}

// DisplayName returns the human-readable name, which is also the value the backend
// sends in the "task" field of a result.
func (t TaskType) DisplayName() string {
	return displayNames[t]
}

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	_, ok := displayNames[t]
	return ok
}

func (t TaskType) String() string { return string(t) }

// ParseTaskType converts a task identifier such as "resume_analysis" into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown task type: %q", s)
	}
	return t, nil
}

// TaskFromDisplayName maps a result discriminant back to its task type.
// Matching is exact and case-sensitive.
func TaskFromDisplayName(name string) (TaskType, bool) {
	for t, display := range displayNames {
		if display == name {
			return t, true
		}
	}
	return "", false
}

// InputKind describes what a task consumes: an uploaded file or free text.
type InputKind string

// Input kinds
const (
	InputFile InputKind = "file"
	InputText InputKind = "text"
)

// Input returns the kind of content the task is submitted with.
func (t TaskType) Input() InputKind {
	switch t {
	case TaskResumeAnalysis, TaskObjectDetection, TaskInvoiceExtraction:
		return InputFile
	default:
		return InputText
	}
}
