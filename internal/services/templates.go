package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	schemaFileName = "schema.json"
	promptFileName = "prompt.txt"

	// schemaPlaceholder marks where the schema is substituted into
	// the prompt template.
	schemaPlaceholder = "{schema}"
)

// TemplateSet holds the packaged extraction configuration: the schema
// describing the fields the model should extract, and the prompt
// template that carries it. It is loaded once at initialization and
// read-only afterwards, so concurrent documents share it freely.
type TemplateSet struct {
	Schema         map[string]any
	PromptTemplate string
}

// LoadTemplates reads schema.json and prompt.txt from dir. Both are
// required deployment resources; a missing or malformed file is a
// fatal initialization error.
func LoadTemplates(dir string) (*TemplateSet, error) {
	schemaPath := filepath.Join(dir, schemaFileName)
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema from %s: %w", schemaPath, err)
	}
	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", schemaPath, err)
	}

	promptPath := filepath.Join(dir, promptFileName)
	promptBytes, err := os.ReadFile(promptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt template from %s: %w", promptPath, err)
	}

	return &TemplateSet{
		Schema:         schema,
		PromptTemplate: string(promptBytes),
	}, nil
}

// RenderPrompt substitutes the pretty-printed schema into the prompt
// template.
func (t *TemplateSet) RenderPrompt() (string, error) {
	schemaJSON, err := json.MarshalIndent(t.Schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode schema for prompt: %w", err)
	}
	return strings.ReplaceAll(t.PromptTemplate, schemaPlaceholder, string(schemaJSON)), nil
}
