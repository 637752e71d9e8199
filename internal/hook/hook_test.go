package hook

import (
	"errors"
	"strings"
	"testing"
)

const validPayload = `{
	"session_id": "abc-123",
	"transcript_path": "/home/me/.claude/projects/-home-me-proj/abc-123.jsonl",
	"cwd": "/home/me/proj",
	"model": {"id": "claude-sonnet-4-5", "display_name": "Sonnet 4.5"},
	"workspace": {"current_dir": "/home/me/proj", "project_dir": "/home/me/proj"},
	"version": "2.0.1",
	"cost": {"total_cost_usd": 0.42},
	"context_window": {"used_percent": 37.5}
}`

func TestRead_ValidPayload(t *testing.T) {
	in, err := Read(strings.NewReader(validPayload))
	if err != nil {
		t.Fatal(err)
	}

	if in.SessionID != "abc-123" {
		t.Errorf("SessionID = %q", in.SessionID)
	}
	if in.Model.DisplayName != "Sonnet 4.5" {
		t.Errorf("DisplayName = %q", in.Model.DisplayName)
	}
	if in.Cost == nil || in.Cost.TotalCostUSD == nil || *in.Cost.TotalCostUSD != 0.42 {
		t.Errorf("Cost = %+v", in.Cost)
	}
	if in.ContextWindow == nil || *in.ContextWindow.UsedPercent != 37.5 {
		t.Errorf("ContextWindow = %+v", in.ContextWindow)
	}
}

func TestRead_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no session_id", `{"transcript_path":"/t.jsonl","model":{"id":"m"}}`},
		{"no transcript_path", `{"session_id":"s","model":{"id":"m"}}`},
		{"no model id", `{"session_id":"s","transcript_path":"/t.jsonl","model":{"display_name":"X"}}`},
		{"not json", `session_id=abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.payload)); err == nil {
				t.Error("expected fatal error")
			}
		})
	}
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestProjectDir_Fallbacks(t *testing.T) {
	in := &Input{Cwd: "/cwd"}
	if got := in.ProjectDir(); got != "/cwd" {
		t.Errorf("ProjectDir = %q, want cwd fallback", got)
	}

	in.Workspace.CurrentDir = "/current"
	if got := in.ProjectDir(); got != "/current" {
		t.Errorf("ProjectDir = %q, want current_dir", got)
	}

	in.Workspace.ProjectDir = "/project"
	if got := in.ProjectDir(); got != "/project" {
		t.Errorf("ProjectDir = %q, want project_dir", got)
	}
}
