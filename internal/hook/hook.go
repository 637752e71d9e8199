// Package hook parses the statusline payload Claude Code writes to stdin.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Model identifies the model driving the session.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Workspace carries the directories the session is operating in.
type Workspace struct {
	CurrentDir string `json:"current_dir"`
	ProjectDir string `json:"project_dir"`
}

// Cost is the host-supplied running total, when the host provides one.
type Cost struct {
	TotalCostUSD *float64 `json:"total_cost_usd"`
}

// ContextWindow is an optional pre-supplied context usage figure.
type ContextWindow struct {
	UsedPercent *float64 `json:"used_percent"`
}

// Input is one render tick's payload.
type Input struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path"`
	Cwd            string         `json:"cwd"`
	Model          Model          `json:"model"`
	Workspace      Workspace      `json:"workspace"`
	Version        string         `json:"version"`
	Cost           *Cost          `json:"cost"`
	ContextWindow  *ContextWindow `json:"context_window"`
}

// ErrEmptyInput is returned when stdin carried no payload at all.
var ErrEmptyInput = errors.New("hook: empty input")

// Read decodes and validates one payload. Missing required fields are a
// fatal input error for the invocation: no metrics can be computed without
// a session identity and transcript location.
func Read(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("hook: reading stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("hook: parsing payload: %w", err)
	}

	switch {
	case in.SessionID == "":
		return nil, errors.New("hook: missing session_id")
	case in.TranscriptPath == "":
		return nil, errors.New("hook: missing transcript_path")
	case in.Model.ID == "":
		return nil, errors.New("hook: missing model.id")
	}
	return &in, nil
}

// ProjectDir returns the best available project directory.
func (in *Input) ProjectDir() string {
	if in.Workspace.ProjectDir != "" {
		return in.Workspace.ProjectDir
	}
	if in.Workspace.CurrentDir != "" {
		return in.Workspace.CurrentDir
	}
	return in.Cwd
}
