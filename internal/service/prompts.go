package service

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"toJSON": toJSON}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

// Template names, one per extraction kind.
const (
	personPrompt     = "person.tmpl"
	taskPrompt       = "task.tmpl"
	agentPrompt      = "agent.tmpl"
	delegationPrompt = "delegation.tmpl"
)

type sourcePromptData struct {
	Schema      string
	Source      string
	HasDocument bool
}

type delegationPromptData struct {
	Schema  string
	Task    TaskBrief
	Members []PersonCandidate
	Agents  []AgentCandidate
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	return buf.String(), nil
}

func toJSON(v any) (string, error) {
	out, err := marshalIndent(v)
	if err != nil {
		return "", fmt.Errorf("toJSON: %w", err)
	}

	return out, nil
}
