// Package schemas embeds the JSON Schema documents for the task hub's wire formats.
package schemas

import "embed"

// Schema file names
const (
	AnalysisResult = "analysis_result.schema.json"
	Preferences    = "preferences.schema.json"
)

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Names lists the embedded schema files.
var Names = []string{AnalysisResult, Preferences}
