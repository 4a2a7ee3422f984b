// Package visibility evaluates CEL rules attached to menu items. Rules see
// the viewer's permission and role lists, e.g.
//
//	"crm_access" in permissions && !("client" in roles)
package visibility

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// Evaluator compiles and caches CEL programs per expression. Safe for
// concurrent use.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator creates the shared CEL environment for visibility rules.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("permissions", decls.NewListType(decls.String)),
			decls.NewVar("roles", decls.NewListType(decls.String)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Allowed evaluates the expression against the given variables. The
// expression must produce a boolean.
func (e *Evaluator) Allowed(expr string, vars map[string]interface{}) (bool, error) {
	program, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("visibility rule did not return a boolean")
	}
	return result, nil
}

// program returns the cached compiled program for the expression, compiling
// it on first use.
func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.programs[expr] = program
	e.mu.Unlock()
	return program, nil
}
