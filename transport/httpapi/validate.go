package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/acp-project/acp-go/acpmodel"
)

// jsonPartContentType is the MessagePart.ContentType an agent's InputSchema
// applies to; parts of any other content type are left unvalidated.
const jsonPartContentType = "application/json"

// createRunSchemaJSON is compiled once at startup, the same
// compile-a-literal-schema-then-validate-a-decoded-document pattern
// registry/service.go uses for tool-call payloads.
const createRunSchemaJSON = `{
	"type": "object",
	"required": ["agent_name", "input", "mode"],
	"properties": {
		"agent_name": {"type": "string", "minLength": 1},
		"session_id": {"type": "string"},
		"mode": {"type": "string", "enum": ["sync", "async", "stream"]},
		"input": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["parts"],
				"properties": {
					"role": {"type": "string"},
					"parts": {"type": "array"}
				}
			}
		}
	}
}`

const resumeSchemaJSON = `{
	"type": "object",
	"required": ["await_resume", "mode"],
	"properties": {
		"mode": {"type": "string", "enum": ["sync", "async", "stream"]},
		"await_resume": {
			"type": "object",
			"required": ["type"],
			"properties": {
				"type": {"type": "string"}
			}
		}
	}
}`

// schemas holds the compiled request-body schemas used to validate
// POST /runs and POST /runs/{id} before they are unmarshalled into
// typed Go structs.
type schemas struct {
	createRun *jsonschema.Schema
	resume    *jsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	createRun, err := compileSchema("create_run.json", createRunSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("httpapi: compile create-run schema: %w", err)
	}
	resume, err := compileSchema("resume.json", resumeSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("httpapi: compile resume schema: %w", err)
	}
	return &schemas{createRun: createRun, resume: resume}, nil
}

func compileSchema(name, source string) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

// validateBody decodes body's raw JSON into an any and validates it
// against schema before the caller unmarshals it into a typed struct.
func validateBody(schema *jsonschema.Schema, body []byte) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// compileAgentInputSchema compiles an agent's optional InputSchema, the
// same literal-schema-then-compile pattern compileSchema uses for the
// fixed envelope schemas above.
func compileAgentInputSchema(agentName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("httpapi: parse input schema for agent %q: %w", agentName, err)
	}
	c := jsonschema.NewCompiler()
	name := agentName + "-input.json"
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("httpapi: add input schema for agent %q: %w", agentName, err)
	}
	schema, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("httpapi: compile input schema for agent %q: %w", agentName, err)
	}
	return schema, nil
}

// validateInputAgainstSchema validates every "application/json" part of
// input against schema, the enrichment of GET /agents/{name}'s descriptor
// with a per-agent input contract.
func validateInputAgainstSchema(schema *jsonschema.Schema, input []acpmodel.Message) error {
	for mi, msg := range input {
		for pi, part := range msg.Parts {
			if part.ContentType != jsonPartContentType {
				continue
			}
			var doc any
			if err := json.Unmarshal([]byte(part.Content), &doc); err != nil {
				return fmt.Errorf("message %d part %d: invalid JSON: %w", mi, pi, err)
			}
			if err := schema.Validate(doc); err != nil {
				return fmt.Errorf("message %d part %d: %w", mi, pi, err)
			}
		}
	}
	return nil
}
