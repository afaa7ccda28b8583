package catalog

import "github.com/jonathan/taskhub/internal/types"

// Rates are credits per 1000 estimated tokens.
var defaultModels = []types.ModelDescriptor{
	// OpenAI
	{ID: "gpt-4o", Provider: ProviderOpenAI, DisplayName: "GPT-4o", Description: "Flagship multimodal model, strong on documents and images", Rate: 10},
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, DisplayName: "GPT-4o mini", Description: "Fast and inexpensive for everyday text tasks", Rate: 2},
	{ID: "gpt-4-turbo", Provider: ProviderOpenAI, DisplayName: "GPT-4 Turbo", Description: "Large context window for long documents", Rate: 15},

	// Anthropic
	{ID: "claude-3-5-sonnet", Provider: ProviderAnthropic, DisplayName: "Claude 3.5 Sonnet", Description: "Balanced reasoning and writing quality", Rate: 8},
	{ID: "claude-3-haiku", Provider: ProviderAnthropic, DisplayName: "Claude 3 Haiku", Description: "Lowest latency, suited to classification", Rate: 1},
	{ID: "claude-3-opus", Provider: ProviderAnthropic, DisplayName: "Claude 3 Opus", Description: "Deepest analysis for complex documents", Rate: 20},

	// Google
	{ID: "gemini-1.5-pro", Provider: ProviderGoogle, DisplayName: "Gemini 1.5 Pro", Description: "Long-context multimodal model", Rate: 7},
	{ID: "gemini-1.5-flash", Provider: ProviderGoogle, DisplayName: "Gemini 1.5 Flash", Description: "Low-cost multimodal model for high volume", Rate: 1.5},

	// Meta
	{ID: "llama-3-70b", Provider: ProviderMeta, DisplayName: "Llama 3 70B", Description: "Open-weight model for general text tasks", Rate: 3},
}

// DefaultModelID is used when neither a preference nor a task default applies.
const DefaultModelID = "gpt-4o-mini"

// taskDefaults are the models selected for each task before the user picks one.
var taskDefaults = map[types.TaskType]string{
	types.TaskResumeAnalysis:    "gpt-4o",
	types.TaskObjectDetection:   "gpt-4o",
	types.TaskInvoiceExtraction: "gpt-4o",
	types.TaskTextSummarization: "claude-3-5-sonnet",
	types.TaskSentimentAnalysis: "claude-3-haiku",
	types.TaskCustomPrompt:      "gpt-4o-mini",
}

// TaskDefault returns the built-in model for a task.
func TaskDefault(task types.TaskType) string {
	if id, ok := taskDefaults[task]; ok {
		return id
	}
	return DefaultModelID
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultModels)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return c
}
