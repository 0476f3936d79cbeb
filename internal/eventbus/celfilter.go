package eventbus

import (
	"encoding/json"
	"strings"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program evaluated against published
// envelopes. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("tag", cel.StringType),
		// "type" is a CEL built-in identifier, so the envelope type is
		// exposed as event_type.
		cel.Variable("event_type", cel.StringType),
		cel.Variable("correlation_id", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		// Parsed event payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("properties", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against an envelope. When
// disabled, returns true. Evaluation errors fail closed.
func (f celFilter) Eval(env Envelope) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(env.Event, &jsonObj)
	props := env.Metadata.Properties
	if props == nil {
		props = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"tag":            env.Tag,
		"event_type":     env.Type,
		"correlation_id": env.Metadata.CorrelationID,
		"ts_ms":          env.Metadata.Timestamp.UnixMilli(),
		"json":           jsonObj,
		"properties":     props,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
