package estimate

import "github.com/jonathan/taskhub/internal/types"

// Mode selects how input tokens combine with a task's base tokens.
type Mode int

const (
	// Multiply scales the base tokens by a clamped input-size factor.
	Multiply Mode = iota
	// Add adds the input tokens to the base tokens.
	Add
)

// Profile holds the pricing constants of one task type.
type Profile struct {
	BaseTokens      float64
	ReferenceTokens float64 // Input size at which scaling starts (Multiply only)
	MaxScale        float64 // Upper bound of the scaling factor (Multiply only)
	Mode            Mode
	MinCredits      int
}

// Conversion ratios from content size to tokens.
const (
	charsPerToken = 4.0
	charsPerKB    = 1000.0
	bytesPerKB    = 1024.0
)

// DefaultRate is charged when the selected model has no resolvable rate.
const DefaultRate = 5.0

// These mirror the server pricing table.
var defaultProfiles = map[types.TaskType]Profile{
	types.TaskResumeAnalysis:    {BaseTokens: 1500, ReferenceTokens: 1000, MaxScale: 3.0, Mode: Multiply, MinCredits: 1},
	types.TaskObjectDetection:   {BaseTokens: 1000, ReferenceTokens: 2000, MaxScale: 2.0, Mode: Multiply, MinCredits: 1},
	types.TaskInvoiceExtraction: {BaseTokens: 1200, ReferenceTokens: 1000, MaxScale: 3.0, Mode: Multiply, MinCredits: 1},
	types.TaskTextSummarization: {BaseTokens: 500, Mode: Add, MinCredits: 1},
	types.TaskSentimentAnalysis: {BaseTokens: 300, ReferenceTokens: 500, MaxScale: 5.0, Mode: Multiply, MinCredits: 1},
	types.TaskCustomPrompt:      {BaseTokens: 800, ReferenceTokens: 1000, MaxScale: 4.0, Mode: Multiply, MinCredits: 1},
}

// fallbackProfile prices a task type with no profile of its own.
var fallbackProfile = Profile{BaseTokens: 1000, ReferenceTokens: 1000, MaxScale: 3.0, Mode: Multiply, MinCredits: 1}

// DefaultProfiles returns a copy of the built-in pricing table.
func DefaultProfiles() map[types.TaskType]Profile {
	out := make(map[types.TaskType]Profile, len(defaultProfiles))
	for k, v := range defaultProfiles {
		out[k] = v
	}
	return out
}
