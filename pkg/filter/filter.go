// Package filter selects snapshot entries with boolean expressions, e.g
//
//	has_value && key startsWith "executable"
//
// The expressions are evaluated by expr-lang against the following fields of
// the entry: index, raw, key, value, has_value and truncated.
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	structmapper "gopkg.in/anexia-it/go-structmapper.v1"

	"github.com/elwinar/appleargs/pkg/snapshot"
)

// Filter is a compiled expression. The zero value matches every entry.
type Filter struct {
	expression string
	program    *vm.Program
	mapper     *structmapper.Mapper
}

// Compile the given expression. An empty expression matches every entry.
func Compile(expression string) (*Filter, error) {
	f := &Filter{
		expression: strings.TrimSpace(expression),
	}
	if f.expression == "" {
		return f, nil
	}

	// Use the JSON tags so the expression fields are named like the
	// encoded snapshot ones.
	mapper, err := structmapper.NewMapper(structmapper.OptionTagName("json"))
	if err != nil {
		return nil, fmt.Errorf("initializing mapper: %w", err)
	}
	f.mapper = mapper

	env, err := mapper.ToMap(snapshot.Entry{})
	if err != nil {
		return nil, fmt.Errorf("mapping entry: %w", err)
	}

	f.program, err = expr.Compile(f.expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", f.expression, err)
	}

	return f, nil
}

// String returns the expression.
func (f *Filter) String() string {
	return f.expression
}

// Match reports whether the entry matches the expression.
func (f *Filter) Match(e snapshot.Entry) (bool, error) {
	if f.program == nil {
		return true, nil
	}

	env, err := f.mapper.ToMap(e)
	if err != nil {
		return false, fmt.Errorf("mapping entry %d: %w", e.Index, err)
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q on entry %d: %w", f.expression, e.Index, err)
	}

	// AsBool guarantees the type at compile time.
	return out.(bool), nil
}
