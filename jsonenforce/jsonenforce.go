// Package jsonenforce implements the parse/repair/validate pipeline a
// step runs on a completion when its output declares expects: json,
// grounded directly on spec.md §4.9 (no original_source file covers
// this; the Python original inlines the repair pass in
// chain/runner.py's _coerce_json, confirmed absent as its own module).
package jsonenforce

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/bonehead-labs/fmf/errs"
)

// Schema is the minimal validation contract a step output may declare:
// schema.type == "object" requires an object, schema.required lists
// keys that must be present. Either may be left zero-valued to skip
// that check.
type Schema struct {
	Type     string   `yaml:"type" json:"type"`
	Required []string `yaml:"required" json:"required"`
}

// Result is what Enforce always returns: either Value holds the
// parsed (and, if a schema was given, validated) object, or the call
// terminally failed and Sentinel should be recorded instead.
type Result struct {
	Value       map[string]interface{}
	RetriesUsed int
	Sentinel    *Sentinel
}

// Sentinel is the record spec.md §4.9 requires on terminal failure:
// parse_error is always true, RawText carries the model's original
// text, and SchemaError is set only when parsing succeeded but
// validation failed.
type Sentinel struct {
	ParseError  bool   `json:"parse_error"`
	RawText     string `json:"raw_text"`
	SchemaError string `json:"schema_error,omitempty"`
}

// Enforce runs the parse → repair → validate pipeline over raw, the
// provider completion's text. parseRetries bounds the number of
// repair passes (0 means: try once, then give up). schema is optional;
// pass the zero Schema to skip validation.
func Enforce(raw string, parseRetries int, schema *Schema) Result {
	candidate := raw
	attempt := 0
	for {
		value, err := parseObject(candidate)
		if err == nil {
			if schemaErr := validate(value, schema); schemaErr != "" {
				return Result{Sentinel: &Sentinel{ParseError: true, RawText: raw, SchemaError: schemaErr}}
			}
			return Result{Value: value, RetriesUsed: attempt}
		}
		if attempt >= parseRetries {
			return Result{Sentinel: &Sentinel{ParseError: true, RawText: raw}}
		}
		candidate = repair(candidate)
		attempt++
	}
}

func parseObject(s string) (map[string]interface{}, error) {
	if !gjson.Valid(s) {
		return nil, errs.ProcessingErrorf(nil, "invalid json")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, errs.ProcessingErrorf(err, "json did not decode to an object")
	}
	return out, nil
}

// repair strips markdown code fences and surrounding prose, then
// extracts the longest substring between the first '{' and the last
// '}'. It never re-invokes the provider.
func repair(s string) string {
	s = stripCodeFences(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		first := s[:nl]
		if !strings.Contains(first, "{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// validate returns a non-empty description on failure, or "" when the
// value satisfies schema (or schema is nil/zero-valued).
func validate(value map[string]interface{}, schema *Schema) string {
	if schema == nil {
		return ""
	}
	// schema.Type == "object" is implied: parseObject only ever succeeds
	// when raw decodes to a map[string]interface{}, so there is nothing
	// further to check for that case.
	if len(schema.Required) == 0 {
		return ""
	}
	doc := map[string]interface{}{
		"type":     "object",
		"required": toAnySlice(schema.Required),
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("step-output.json", doc); err != nil {
		return err.Error()
	}
	compiled, err := c.Compile("step-output.json")
	if err != nil {
		return err.Error()
	}
	if err := compiled.Validate(toAnyMap(value)); err != nil {
		return err.Error()
	}
	return ""
}

func toAnySlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func toAnyMap(m map[string]interface{}) interface{} {
	return map[string]interface{}(m)
}
