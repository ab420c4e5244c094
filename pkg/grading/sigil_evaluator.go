package grading

import (
	"fmt"

	"github.com/goliatone/go-content/pkg/expression"
)

// SigilEvaluatorOption configures the sigil evaluator.
type SigilEvaluatorOption func(*sigilEvaluator)

// SigilWithProgramCache wires a ProgramCache into the sigil evaluator.
func SigilWithProgramCache(cache ProgramCache) SigilEvaluatorOption {
	return func(e *sigilEvaluator) {
		e.cache = cache
	}
}

// SigilWithFunctionRegistry wires a FunctionRegistry into the sigil evaluator.
func SigilWithFunctionRegistry(registry *FunctionRegistry) SigilEvaluatorOption {
	return func(e *sigilEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// sigilEvaluator is the default engine: it runs rules through the embedded
// expression language, so '@component.field', '#content' and '$global'
// references work exactly as they do in content attributes.
type sigilEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewSigilEvaluator constructs the default Evaluator.
func NewSigilEvaluator(opts ...SigilEvaluatorOption) Evaluator {
	e := &sigilEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *sigilEvaluator) Evaluate(ctx RuleContext, rule string) (any, error) {
	if rule == "" {
		return nil, wrapEvaluatorError("sigil", fmt.Errorf("rule must not be empty"))
	}
	expr, err := expression.ParseCached(e.cache, rule)
	if err != nil {
		return nil, wrapEvaluationError("sigil", rule, ctx.scopeLabel(), err)
	}
	return e.run(ctx, rule, expr)
}

func (e *sigilEvaluator) Compile(rule string, _ ...CompileOption) (CompiledRule, error) {
	if rule == "" {
		return nil, wrapEvaluatorError("sigil", fmt.Errorf("rule must not be empty"))
	}
	expr, err := expression.ParseCached(e.cache, rule)
	if err != nil {
		return nil, wrapEvaluationError("sigil", rule, "", err)
	}
	return &sigilCompiledRule{evaluator: e, rule: rule, expr: expr}, nil
}

func (e *sigilEvaluator) run(ctx RuleContext, rule string, expr expression.Expr) (any, error) {
	ctx = ctx.withDefaults()
	env := expression.NewContext(expression.Context{
		ComponentState: ctx.componentState(),
		Content:        ctx.Content,
		Globals:        ctx.Globals,
		Bindings:       map[string]any{"now": float64(ctx.Now.Unix()), "scope": ctx.Scope},
		Functions:      e.registry,
	})
	result, err := expression.Evaluate(expr, env)
	if err != nil {
		return nil, wrapEvaluationError("sigil", rule, ctx.scopeLabel(), err)
	}
	return result, nil
}

type sigilCompiledRule struct {
	evaluator *sigilEvaluator
	rule      string
	expr      expression.Expr
}

func (r *sigilCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("sigil", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx, r.rule, r.expr)
}
