package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind is the JSON shape of one extracted field.
type FieldKind string

// Field kinds understood by the extractor.
const (
	FieldString     FieldKind = "string"
	FieldStringList FieldKind = "string_list"
	FieldInteger    FieldKind = "integer"
	FieldStringMap  FieldKind = "string_map"
)

// Field describes one key of an extracted JSON object.
type Field struct {
	Name        string
	Kind        FieldKind
	Description string
	// Required fields must be present and non-null in the model output.
	Required bool
	// Nullable fields may be null; absent optional lists default to [].
	Nullable    bool
	NonNegative bool
}

// Schema is the single definition of one record kind. The prompt shows it to the model as
// JSON Schema and the extractor checks required keys against it.
type Schema struct {
	Title       string
	Description string
	Fields      []Field
}

// RequiredFields returns the names of fields that must be present and non-null.
func (s Schema) RequiredFields() []string {
	var names []string

	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}

	return names
}

// JSONSchema renders the schema as an indented JSON Schema document.
func (s Schema) JSONSchema() (string, error) {
	properties := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		properties[f.Name] = f.property()
	}

	doc := map[string]any{
		"title":                s.Title,
		"description":          s.Description,
		"type":                 "object",
		"properties":           properties,
		"required":             s.RequiredFields(),
		"additionalProperties": false,
	}

	out, err := marshalIndent(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render schema %s: %w", s.Title, err)
	}

	return out, nil
}

// marshalIndent is json.MarshalIndent without HTML escaping, so "<id>" reaches the model verbatim.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return "", err //nolint:wrapcheck // callers wrap
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (f Field) property() map[string]any {
	prop := map[string]any{"description": f.Description}

	switch f.Kind {
	case FieldString:
		prop["type"] = "string"
	case FieldStringList:
		prop["type"] = "array"
		prop["items"] = map[string]any{"type": "string"}

		if !f.Required {
			prop["default"] = []string{}
		}
	case FieldInteger:
		prop["type"] = "integer"

		if f.NonNegative {
			prop["minimum"] = 0
		}
	case FieldStringMap:
		prop["type"] = "object"
		prop["additionalProperties"] = map[string]any{"type": "string"}
	}

	if f.Nullable {
		prop["type"] = []any{prop["type"], "null"}
		prop["default"] = nil
	}

	return prop
}

var personSchema = Schema{
	Title:       "PersonProfile",
	Description: "Structured profile of a team member, derived from their resume.",
	Fields: []Field{
		{Name: "personal_summary", Kind: FieldString, Required: true,
			Description: "A concise summary of the candidate's professional aspirations and focus."},
		{Name: "technical_skills", Kind: FieldStringList, Required: true,
			Description: "Technical proficiencies, inferred from education and experience as well as stated skills."},
		{Name: "certifications", Kind: FieldStringList, Required: true,
			Description: "Professional certifications obtained."},
		{Name: "soft_skills", Kind: FieldStringList, Required: true,
			Description: "Interpersonal and non-technical abilities."},
		{Name: "vocal_attributes", Kind: FieldString, Nullable: true,
			Description: "Information regarding vocal attributes, if available."},
		{Name: "task_delegation_recommendations", Kind: FieldStringList, Required: true,
			Description: "Tasks or responsibilities the candidate is recommended for."},
		{Name: "specialization_task_categories", Kind: FieldStringList, Required: true,
			Description: "Categories of specialized tasks the candidate is suited for."},
		{Name: "additional_observations", Kind: FieldStringList, Required: true,
			Description: "Any other notable observations about the candidate."},
	},
}

var taskSchema = Schema{
	Title:       "TaskProfile",
	Description: "Structured description of a unit of work.",
	Fields: []Field{
		{Name: "required_skills", Kind: FieldStringList, Required: true,
			Description: "Skills required to complete the task."},
		{Name: "sector", Kind: FieldString, Nullable: true,
			Description: "The relevant industry, department, or domain (e.g. 'Finance', 'Backend Development')."},
		{Name: "tags", Kind: FieldStringList,
			Description: "Keywords for categorization and matching, including project names, technologies, or departments."},
		{Name: "manpower_needed", Kind: FieldInteger, Required: true, NonNegative: true,
			Description: "The estimated number of individuals needed (integer only)."},
		{Name: "roles_required", Kind: FieldStringList,
			Description: "Team roles required (e.g. 'developers', 'a small QA team', 'project manager')."},
		{Name: "estimated_time", Kind: FieldInteger, Required: true, NonNegative: true,
			Description: "Estimated number of hours required to complete the task (integer only)."},
	},
}

var agentSchema = Schema{
	Title:       "AgentProfile",
	Description: "Structured description of an automated agent.",
	Fields: []Field{
		{Name: "tags", Kind: FieldStringList,
			Description: "Keywords categorizing the agent (e.g. 'customer service', 'automation', 'reporting')."},
		{Name: "skills", Kind: FieldStringList,
			Description: "Specific abilities the agent has (e.g. 'Natural Language Processing', 'API Integration')."},
		{Name: "capabilities", Kind: FieldStringList,
			Description: "Higher-level actions the agent can perform (e.g. 'Understand customer intent', 'Automate workflow')."},
		{Name: "core_functionalities", Kind: FieldStringList,
			Description: "Fundamental tasks the agent is designed to execute (e.g. 'Answer FAQs', 'Process payments')."},
	},
}

var delegationSchema = Schema{
	Title:       "DelegationChoice",
	Description: "The best combination of members and agents for a task.",
	Fields: []Field{
		{Name: "best_combination", Kind: FieldStringMap, Required: true,
			Description: "Keys are candidate ids exactly as given (member_<id> or agent_<id>); values are the reasons for selecting them."},
		{Name: "reasoning", Kind: FieldString, Required: true,
			Description: "A detailed explanation of why this combination is the best for the task."},
	},
}
