package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
}

const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// GenerateSchema generates a JSON Schema for a Scenario.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/htn-go/scenario.schema.json",
		Title:       "HTN Scenario",
		Description: "Planning scenario for htn-go: facts, tasks, macros and agents",
		Type:        "object",
		Required:    []string{"name", "version"},
		Definitions: map[string]*JSONSchema{
			"facts":      factsSchema(),
			"constraint": constraintSchema(),
			"duration": {
				Type:        "string",
				Description: "Go duration string such as 500ms or 1m",
				Pattern:     durationPattern,
			},
		},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this scenario",
			},
			"version": {
				Type:        "string",
				Description: "The scenario schema version",
				Default:     "1",
			},
			"description": {
				Type:        "string",
				Description: "Describes the scenario",
			},
			"world":     {Ref: "#/$defs/facts", Description: "Global facts shared by every agent"},
			"planner":   plannerSchema(),
			"cache":     cacheSchema(),
			"storage":   storageSchema(),
			"logging":   loggingSchema(),
			"telemetry": telemetrySchema(),
			"tasks": {
				Type:        "array",
				Description: "Primitive task definitions",
				Items:       taskSchema(),
			},
			"macros": {
				Type:        "array",
				Description: "Ordered composites of tasks",
				Items:       macroSchema(),
			},
			"agents": {
				Type:        "array",
				Description: "Planning agents",
				Items:       agentSchema(),
			},
		},
	}
}

func factsSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Fact names mapped to boolean, string, number or null",
		AdditionalProperties: &JSONSchema{
			OneOf: []*JSONSchema{
				{Type: "boolean"},
				{Type: "string"},
				{Type: "number"},
				{Type: "null"},
			},
		},
	}
}

func constraintSchema() *JSONSchema {
	return &JSONSchema{
		Type:     "object",
		Required: []string{"key", "op"},
		Properties: map[string]*JSONSchema{
			"key": {Type: "string", Description: "Fact name"},
			"op": {
				Type:        "string",
				Description: "Comparison operator",
				Enum:        []string{"equals", "has", "greater", "less"},
			},
			"value": {Description: "Comparison value; numeric for greater and less, unused by has"},
		},
	}
}

func plannerSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Forward search tuning",
		Properties: map[string]*JSONSchema{
			"max_iterations": {
				Type:        "integer",
				Description: "Expansions per planning call",
				Minimum:     floatPtr(0),
				Default:     10000,
			},
			"max_depth": {
				Type:        "integer",
				Description: "Maximum plan length",
				Minimum:     floatPtr(0),
				Default:     16,
			},
			"depth_from_tasks": {
				Type:        "boolean",
				Description: "Bound plan length by the agent's task count",
			},
		},
	}
}

func cacheSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Plan cache",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:    "string",
				Enum:    []string{"none", "memory", "badger", "redis", "sqlite"},
				Default: "none",
			},
			"ttl":        {Ref: "#/$defs/duration"},
			"max_size":   {Type: "integer", Minimum: floatPtr(0)},
			"dir":        {Type: "string", Description: "Badger data directory; empty runs in memory"},
			"address":    {Type: "string", Description: "Redis address"},
			"password":   {Type: "string"},
			"db":         {Type: "integer", Minimum: floatPtr(0)},
			"dsn":        {Type: "string", Description: "SQLite data source"},
			"key_prefix": {Type: "string"},
			"resilience": resilienceSchema(),
		},
	}
}

func resilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Guards for remote cache backends",
		Properties: map[string]*JSONSchema{
			"timeout": {Ref: "#/$defs/duration"},
			"retry": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"max_attempts":  {Type: "integer", Minimum: floatPtr(0), Default: 3},
					"initial_delay": {Ref: "#/$defs/duration"},
				},
			},
			"circuit_breaker": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"threshold": {Type: "integer", Minimum: floatPtr(0), Default: 5},
					"timeout":   {Ref: "#/$defs/duration"},
				},
			},
			"bulkhead": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"max_concurrent": {Type: "integer", Minimum: floatPtr(0), Default: 16},
				},
			},
		},
	}
}

func storageSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Event and snapshot persistence",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:    "string",
				Enum:    []string{"memory", "sqlite", "badger", "postgres", "redis"},
				Default: "memory",
			},
			"dsn":     {Type: "string", Description: "SQLite data source or postgres connection string"},
			"dir":     {Type: "string", Description: "Badger data directory"},
			"address": {Type: "string", Description: "Redis address; redis stores snapshots only"},
			"schema":  {Type: "string", Description: "Postgres schema"},
		},
	}
}

func loggingSchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"trace", "debug", "info", "warn", "error"},
				Default: "info",
			},
			"format": {
				Type:    "string",
				Enum:    []string{"json", "console"},
				Default: "json",
			},
			"no_color": {Type: "boolean"},
		},
	}
}

func telemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type: "object",
		Properties: map[string]*JSONSchema{
			"exporter": {
				Type:    "string",
				Enum:    []string{"noop", "stdout", "otlp"},
				Default: "noop",
			},
			"endpoint":     {Type: "string", Description: "OTLP collector address"},
			"insecure":     {Type: "boolean"},
			"sample_rate":  {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
			"service_name": {Type: "string"},
			"metrics":      {Type: "boolean", Description: "Record planner and runtime metrics"},
		},
	}
}

func taskSchema() *JSONSchema {
	return &JSONSchema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]*JSONSchema{
			"name": {Type: "string"},
			"pre":  {Ref: "#/$defs/facts", Description: "Facts that must equal these values"},
			"require": {
				Type:  "array",
				Items: &JSONSchema{Ref: "#/$defs/constraint"},
			},
			"post":      {Ref: "#/$defs/facts", Description: "Facts the task produces"},
			"cost":      {Type: "number", Minimum: floatPtr(0), Default: 1},
			"cost_expr": {Type: "string", Description: "Expression over the world evaluated as the cost"},
			"marker":    {Type: "string", Description: "Attached to the agent while the task runs"},
			"behavior": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"type": {
						Type:    "string",
						Enum:    []string{"none", "debug", "wait"},
						Default: "none",
					},
					"message": {Type: "string"},
					"ticks":   {Type: "integer", Minimum: floatPtr(0)},
				},
			},
		},
	}
}

func macroSchema() *JSONSchema {
	return &JSONSchema{
		Type:     "object",
		Required: []string{"steps"},
		Properties: map[string]*JSONSchema{
			"name": {Type: "string", Description: "Defaults to the step names joined with +"},
			"steps": {
				Type:  "array",
				Items: &JSONSchema{Type: "string"},
			},
		},
	}
}

func agentSchema() *JSONSchema {
	return &JSONSchema{
		Type:     "object",
		Required: []string{"name", "tasks", "goals"},
		Properties: map[string]*JSONSchema{
			"name":  {Type: "string"},
			"tasks": {Type: "array", Items: &JSONSchema{Type: "string"}},
			"goals": {
				Type: "array",
				Items: &JSONSchema{
					Type:     "object",
					Required: []string{"name"},
					Properties: map[string]*JSONSchema{
						"name":     {Type: "string"},
						"requires": {Ref: "#/$defs/facts"},
						"require": {
							Type:  "array",
							Items: &JSONSchema{Ref: "#/$defs/constraint"},
						},
						"utility": {Type: "number"},
						"when":    {Type: "string", Description: "Gate expression for custom evaluation"},
					},
				},
			},
			"evaluation": {
				Type:    "string",
				Enum:    []string{"top", "random", "custom"},
				Default: "top",
			},
			"seed":  {Type: "integer", Minimum: floatPtr(0)},
			"world": {Ref: "#/$defs/facts", Description: "Agent-local facts"},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
