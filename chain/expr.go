package chain

import (
	"fmt"
	"strings"
)

// Context is the ambient variable set a unit's expressions resolve
// against: chunk/row/group (exactly one set per iteration mode),
// document metadata, and the read-only snapshot of prior steps'
// outputs under "all".
type Context struct {
	Chunk    map[string]interface{}
	Row      map[string]interface{}
	Group    map[string]interface{}
	Document map[string]interface{}
	All      map[string][]interface{}
	Vars     map[string]interface{} // step-local bindings (rag_text, rag_images, ...)
}

// JoinLimits bounds aggregated-output rendering per spec.md §4.7.
type JoinLimits struct {
	MaxChars int
	MaxItems int
}

// DefaultJoinLimits matches the teacher's conservative defaults for
// context aggregation. The engine does not read it: it builds its
// limits from config.Runtime's JoinMaxChars/JoinMaxItems, which is
// where FMF_JOIN_MAX_CHARS/ITEMS apply.
var DefaultJoinLimits = JoinLimits{MaxChars: 8000, MaxItems: 50}

// Eval resolves a single "${...}" expression against ctx. expr must
// include the surrounding "${" "}"; bare literals are returned as-is.
func Eval(expr string, ctx Context, limits JoinLimits) (string, error) {
	trimmed := strings.TrimSpace(expr)
	inner, ok := unwrap(trimmed)
	if !ok {
		return expr, nil
	}
	inner = strings.TrimSpace(inner)

	if _, args, ok := parseCall(inner, "join"); ok {
		if len(args) != 2 {
			return "", fmt.Errorf("join() expects 2 arguments, got %d", len(args))
		}
		value, err := resolvePath(strings.TrimSpace(args[0]), ctx)
		if err != nil {
			return "", err
		}
		sep := unquote(strings.TrimSpace(args[1]))
		return joinValue(value, sep, limits), nil
	}

	value, err := resolvePath(inner, ctx)
	if err != nil {
		return "", err
	}
	return renderValue(value, limits), nil
}

func unwrap(s string) (string, bool) {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return s[2 : len(s)-1], true
	}
	return s, false
}

func parseCall(s, name string) (call string, args []string, ok bool) {
	prefix := name + "("
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	body := s[len(prefix) : len(s)-1]
	return name, splitArgs(body), true
}

// splitArgs splits a comma-separated argument list, respecting quotes
// so that separators embedded in string literals are not split on.
func splitArgs(body string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	var quoteChar byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote:
			current.WriteByte(c)
			if c == quoteChar {
				inQuote = false
			}
		case c == '"' || c == '\'':
			inQuote = true
			quoteChar = c
			current.WriteByte(c)
		case c == ',':
			args = append(args, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 || len(args) > 0 {
		args = append(args, current.String())
	}
	return args
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// resolvePath walks a dotted path ("chunk.text", "all.analysis",
// "row.customer_id", "group.size") against ctx.
func resolvePath(path string, ctx Context) (interface{}, error) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	root := segments[0]
	rest := segments[1:]

	var scope map[string]interface{}
	switch root {
	case "chunk":
		scope = ctx.Chunk
	case "row":
		scope = ctx.Row
	case "group":
		scope = ctx.Group
	case "document":
		scope = ctx.Document
	case "all":
		if len(rest) == 0 {
			return nil, fmt.Errorf("all.<step> requires a step name")
		}
		return ctx.All[rest[0]], nil
	default:
		if v, ok := ctx.Vars[root]; ok {
			if len(rest) == 0 {
				return v, nil
			}
			return nil, fmt.Errorf("cannot index into variable %q", root)
		}
		return nil, fmt.Errorf("unknown root %q in expression", root)
	}
	if scope == nil {
		return nil, nil
	}
	if len(rest) == 0 {
		return scope, nil
	}
	v, ok := scope[rest[0]]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func joinValue(value interface{}, sep string, limits JoinLimits) string {
	items := toStringSlice(value)
	return truncateItems(items, sep, limits)
}

// renderValue stringifies a resolved value: strings pass through,
// lists auto-join with "\n" per spec.md §4.7.
func renderValue(value interface{}, limits JoinLimits) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return truncateChars(v, limits.MaxChars)
	case []string:
		return truncateItems(v, "\n", limits)
	case []interface{}:
		return truncateItems(toStringSlice(v), "\n", limits)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = fmt.Sprintf("%v", item)
		}
		return out
	case string:
		return strings.Split(v, "\n")
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

func truncateItems(items []string, sep string, limits JoinLimits) string {
	more := 0
	if limits.MaxItems > 0 && len(items) > limits.MaxItems {
		more = len(items) - limits.MaxItems
		items = items[:limits.MaxItems]
	}
	out := strings.Join(items, sep)
	if more > 0 {
		out += fmt.Sprintf("%s… [+%d more]", sep, more)
	}
	return truncateChars(out, limits.MaxChars)
}

func truncateChars(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + "… [truncated]"
}

// Render substitutes "{{ name }}" placeholders in template with the
// string values of vars, run after input expressions are resolved.
func Render(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{ "+name+" }}", value)
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
