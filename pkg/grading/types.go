package grading

import (
	"time"

	"github.com/goliatone/go-content/pkg/expression"
)

// RuleContext carries everything a grading rule may reference: the scoped
// component state snapshot, content text, driver globals and a timestamp.
type RuleContext struct {
	// Snapshot maps component names, relative to Scope, to their state
	// fields. It is a detached copy; rules never see live state.
	Snapshot map[string]map[string]any
	// Content maps component names to their authored text.
	Content map[string]string
	// Globals are driver-supplied variables.
	Globals map[string]any
	// Scope labels which scope chain the snapshot was taken under.
	Scope string
	// Now is the evaluation timestamp; zero means time.Now at evaluation.
	Now time.Time
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now.IsZero() {
		ctx.Now = time.Now()
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]map[string]any{}
	}
	if ctx.Content == nil {
		ctx.Content = map[string]string{}
	}
	if ctx.Globals == nil {
		ctx.Globals = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope == "" {
		return "document"
	}
	return ctx.Scope
}

// componentState flattens the snapshot into the loose map the engines bind.
func (ctx RuleContext) componentState() map[string]any {
	state := make(map[string]any, len(ctx.Snapshot))
	for name, fields := range ctx.Snapshot {
		state[name] = fields
	}
	return state
}

// Evaluator executes grading rules against a rule context. Engines are
// interchangeable; the sigil engine is the default and the only one that
// understands '@'/'#'/'$' references natively, the others bind the same
// namespaces as plain variables.
type Evaluator interface {
	Evaluate(ctx RuleContext, rule string) (any, error)
	Compile(rule string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule is a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ProgramCache stores compiled rule programs keyed by rule source.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// FunctionRegistry aliases the expression registry so callers register
// predicates once and share them across engines.
type FunctionRegistry = expression.FunctionRegistry

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return expression.NewFunctionRegistry()
}
