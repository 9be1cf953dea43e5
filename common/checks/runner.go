// Package checks runs the behavioral test battery against a candidate
// preview source. Each check is a CEL expression over the signals the
// sandbox extracts from the rendered component, so the battery can grow
// without touching evaluator code.
package checks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/preview"
)

// Check pairs a CEL expression with the line reported when it fails.
type Check struct {
	Name       string
	Expression string
	Failure    string
}

// DefaultBattery is the battery every revision runs unless a caller
// installs its own. The first check, compilation, is implicit: a source
// that does not evaluate fails before any expression runs.
func DefaultBattery() []Check {
	return []Check{
		{
			Name:       "preview landmark preserved",
			Expression: `ariaLabels.exists(label, label.matches("(?i)product preview"))`,
			Failure:    `Editable preview should preserve an accessible "Product preview" aria label.`,
		},
		{
			Name:       "action controls present",
			Expression: `buttonCount >= 1`,
			Failure:    "Editable preview should keep at least one visible action button.",
		},
		{
			Name:       "styled structure preserved",
			Expression: `normalizedClasses.matches("(rounded-\\[|rounded-|shadow-\\[|shadow|border|bg-\\[|bg-)")`,
			Failure:    "Editable preview should preserve styled UI structure rather than collapsing to unstyled markup.",
		},
	}
}

// Runner compiles check expressions once and reuses the programs across
// revisions.
type Runner struct {
	checks []Check
	env    *cel.Env
	cache  map[string]cel.Program
	mu     sync.RWMutex
}

func NewRunner(battery []Check) (*Runner, error) {
	if len(battery) == 0 {
		battery = DefaultBattery()
	}
	env, err := cel.NewEnv(
		cel.Variable("texts", cel.ListType(cel.StringType)),
		cel.Variable("ariaLabels", cel.ListType(cel.StringType)),
		cel.Variable("buttonTexts", cel.ListType(cel.StringType)),
		cel.Variable("buttonCount", cel.IntType),
		cel.Variable("classNames", cel.ListType(cel.StringType)),
		cel.Variable("normalizedClasses", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &Runner{
		checks: battery,
		env:    env,
		cache:  make(map[string]cel.Program),
	}, nil
}

// Run evaluates the candidate source and applies every check. Checks
// never short-circuit: a failing battery reports every failure line.
func (r *Runner) Run(sourceAfter string) (models.TestStatus, string) {
	signals, err := preview.Inspect(sourceAfter)
	if err != nil {
		return models.TestFailed, err.Error()
	}

	activation := map[string]any{
		"texts":             signals.Texts,
		"ariaLabels":        signals.AriaLabels,
		"buttonTexts":       signals.ButtonTexts,
		"buttonCount":       signals.ButtonCount,
		"classNames":        signals.ClassNames,
		"normalizedClasses": signals.NormalizedClasses(),
	}

	var failures []string
	for _, check := range r.checks {
		passed, err := r.evaluate(check.Expression, activation)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", check.Name, err))
			continue
		}
		if !passed {
			failures = append(failures, check.Failure)
		}
	}

	if len(failures) > 0 {
		return models.TestFailed, strings.Join(failures, "\n")
	}

	names := make([]string, 0, len(r.checks)+1)
	names = append(names, "component compiled")
	for _, check := range r.checks {
		names = append(names, check.Name)
	}
	return models.TestPassed, fmt.Sprintf("%d checks passed: %s.", len(names), strings.Join(names, ", "))
}

func (r *Runner) evaluate(expression string, activation map[string]any) (bool, error) {
	r.mu.RLock()
	prg, exists := r.cache[expression]
	r.mu.RUnlock()

	if !exists {
		var err error
		prg, err = r.compile(expression)
		if err != nil {
			return false, err
		}
		r.mu.Lock()
		r.cache[expression] = prg
		r.mu.Unlock()
	}

	out, _, err := prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}
	return result, nil
}

func (r *Runner) compile(expression string) (cel.Program, error) {
	ast, issues := r.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	prg, err := r.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

// CacheSize reports how many expressions have been compiled.
func (r *Runner) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
