//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SubmitRequest is a task submission as sent to the backend.
type SubmitRequest struct {
	Task     TaskType        `json:"task" validate:"required"`
	Model    string          `json:"model" validate:"required"`
	FileName string          `json:"file_name,omitempty" validate:"required_with=File"`
	File     []byte          `json:"-"`
	Text     string          `json:"text,omitempty" validate:"required_without=File,max=200000"`
	Flags    map[string]bool `json:"flags,omitempty"`
}

// ContentSize returns the size signal used for cost estimation: the file size in
// bytes for file tasks and the character count for text tasks.
func (r *SubmitRequest) ContentSize() int64 {
	if r.Task.Input() == InputFile {
		return int64(len(r.File))
	}
	return int64(len([]rune(r.Text)))
}

// Validate validates the SubmitRequest using the validator.
func (r *SubmitRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !r.Task.Valid() {
		return fmt.Errorf("unknown task type: %q", r.Task)
	}
	if r.Task.Input() == InputFile && len(r.File) == 0 {
		return fmt.Errorf("task %s requires a file", r.Task)
	}
	return nil
}

// EstimateRequest is the body of an estimate call.
type EstimateRequest struct {
	Task        TaskType `json:"task" validate:"required"`
	ContentSize int64    `json:"content_size" validate:"gte=0"`
	Model       string   `json:"model,omitempty"`
	Balance     *int     `json:"balance,omitempty" validate:"omitempty,gte=0"`
}

// Validate validates the EstimateRequest using the validator.
func (r *EstimateRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !r.Task.Valid() {
		return fmt.Errorf("unknown task type: %q", r.Task)
	}
	return nil
}

// SetPreferenceRequest is the body of a preference update.
type SetPreferenceRequest struct {
	Model string `json:"model" validate:"required,min=1"`
}

// Validate validates the SetPreferenceRequest using the validator.
func (r *SetPreferenceRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
