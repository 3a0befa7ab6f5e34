package spec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMatrixKey = errors.New("unknown matrix key")
	ErrUnknownSecret    = errors.New("unknown secret")
	ErrBadExpression    = errors.New("unsupported expression")
)

// Context carries the values available to ${{ ... }} expressions. Secrets is
// nil during matrix expansion: secret references are left intact in that
// phase and only resolve when the runner renders the step environment.
type Context struct {
	Matrix  map[string]string
	Secrets map[string]string
}

// Render substitutes every ${{ ... }} occurrence in s.
//
// matrix.KEY resolves from the context; secrets.NAME resolves only when
// Secrets is non-nil, otherwise the placeholder is preserved verbatim.
func Render(s string, ctx Context) (string, error) {
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${{")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated ${{ in %q", ErrBadExpression, s)
		}
		end += start

		b.WriteString(rest[:start])
		expr := strings.TrimSpace(rest[start+3 : end])

		val, keep, err := resolve(expr, ctx)
		if err != nil {
			return "", err
		}
		if keep {
			b.WriteString(rest[start : end+2])
		} else {
			b.WriteString(val)
		}
		rest = rest[end+2:]
	}
}

func resolve(expr string, ctx Context) (val string, keep bool, err error) {
	switch {
	case strings.HasPrefix(expr, "matrix."):
		key := strings.TrimPrefix(expr, "matrix.")
		v, ok := ctx.Matrix[key]
		if !ok {
			return "", false, fmt.Errorf("%w: %q", ErrUnknownMatrixKey, key)
		}
		return v, false, nil
	case strings.HasPrefix(expr, "secrets."):
		if ctx.Secrets == nil {
			return "", true, nil
		}
		name := strings.TrimPrefix(expr, "secrets.")
		v, ok := ctx.Secrets[name]
		if !ok {
			return "", false, fmt.Errorf("%w: %q", ErrUnknownSecret, name)
		}
		return v, false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrBadExpression, expr)
	}
}

// ReferencesSecret reports whether s contains a ${{ secrets.* }} placeholder.
func ReferencesSecret(s string) bool {
	rest := s
	for {
		start := strings.Index(rest, "${{")
		if start < 0 {
			return false
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return false
		}
		expr := strings.TrimSpace(rest[start+3 : start+end])
		if strings.HasPrefix(expr, "secrets.") {
			return true
		}
		rest = rest[start+end+2:]
	}
}

// SecretNames collects the names of all ${{ secrets.* }} references in s,
// in order of appearance and without duplicates.
func SecretNames(s string) []string {
	var names []string
	seen := make(map[string]bool)
	rest := s
	for {
		start := strings.Index(rest, "${{")
		if start < 0 {
			return names
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return names
		}
		expr := strings.TrimSpace(rest[start+3 : start+end])
		if name := strings.TrimPrefix(expr, "secrets."); name != expr && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		rest = rest[start+end+2:]
	}
}

// CondContext is the state an if: condition is evaluated against.
type CondContext struct {
	Matrix map[string]string
	// Failed is true once an earlier step of the job has failed.
	Failed bool
}

// EvalCondition evaluates a step if: condition.
//
// Supported forms: always(), success(), failure(), matrix.KEY,
// matrix.KEY == literal, matrix.KEY != literal. A condition without a status
// function carries an implicit success() guard, so ordinary conditional steps
// are skipped after a failure.
func EvalCondition(cond string, ctx CondContext) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return !ctx.Failed, nil
	}

	switch cond {
	case "always()":
		return true, nil
	case "success()":
		return !ctx.Failed, nil
	case "failure()":
		return ctx.Failed, nil
	}

	if ctx.Failed {
		return false, nil
	}

	if eq := strings.Index(cond, "=="); eq >= 0 {
		left, err := condOperand(cond[:eq], ctx)
		if err != nil {
			return false, err
		}
		return left == literal(cond[eq+2:]), nil
	}
	if ne := strings.Index(cond, "!="); ne >= 0 {
		left, err := condOperand(cond[:ne], ctx)
		if err != nil {
			return false, err
		}
		return left != literal(cond[ne+2:]), nil
	}

	// Bare matrix reference: truthy unless empty or "false".
	v, err := condOperand(cond, ctx)
	if err != nil {
		return false, err
	}
	return v != "" && v != "false", nil
}

func condOperand(s string, ctx CondContext) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "matrix.") {
		return "", fmt.Errorf("%w: %q", ErrBadExpression, s)
	}
	key := strings.TrimPrefix(s, "matrix.")
	v, ok := ctx.Matrix[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMatrixKey, key)
	}
	return v, nil
}

func literal(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
