//nolint:revive // types is a standard Go package name pattern
package types

// ModelDescriptor describes a selectable model and its credit rate.
type ModelDescriptor struct {
	ID          string  `json:"id"`
	Provider    string  `json:"provider"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Rate        float64 `json:"rate"` // Credits per 1000 estimated tokens
}

// PreferenceMap maps each task type to its selected model ID.
type PreferenceMap map[TaskType]string

// Clone returns an independent copy of the map.
func (p PreferenceMap) Clone() PreferenceMap {
	out := make(PreferenceMap, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Quote is a credit estimate together with the numbers that produced it.
type Quote struct {
	Task            TaskType `json:"task"`
	ModelID         string   `json:"model_id"`
	ContentSize     int64    `json:"content_size"`
	InputTokens     float64  `json:"input_tokens"`
	Scale           float64  `json:"scale"`
	EstimatedTokens float64  `json:"estimated_tokens"`
	Rate            float64  `json:"rate"`
	Credits         int      `json:"credits"`
}
