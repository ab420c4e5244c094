package grading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goliatone/go-content/pkg/expression"
)

// Verdicts are the correctness vocabulary shared with the expression
// language's correctness enumeration.
const (
	VerdictCorrect          = "correct"
	VerdictIncorrect        = "incorrect"
	VerdictPartiallyCorrect = "partiallyCorrect"
	VerdictUnanswered       = "unanswered"
)

// StateReader is the slice of the state store the grader needs: scope-wide
// snapshots. pkg/state stores satisfy it.
type StateReader interface {
	SnapshotScope(ctx context.Context, scope string) (map[string]map[string]any, error)
}

// Outcome is the result of grading one rule against one scope.
type Outcome struct {
	Verdict  string
	Value    any
	Rule     string
	Scope    string
	GradedAt time.Time
}

// Grader evaluates gating and grading rules against component state. Rules
// run on the configured engine, the sigil engine by default, so the same
// condition strings that drive rendering drive grading.
type Grader struct {
	state     StateReader
	evaluator Evaluator
	functions *FunctionRegistry
	logger    EvaluatorLogger
	content   map[string]string
	globals   map[string]any
	clock     func() time.Time
}

// GraderOption configures a Grader.
type GraderOption func(*Grader)

// WithEvaluator swaps the rule engine; nil keeps the default.
func WithEvaluator(evaluator Evaluator) GraderOption {
	return func(g *Grader) {
		if evaluator != nil {
			g.evaluator = evaluator
		}
	}
}

// WithFunctions registers pure predicates callable from rules.
func WithFunctions(registry *FunctionRegistry) GraderOption {
	return func(g *Grader) {
		if registry != nil {
			g.functions = registry.Clone()
		}
	}
}

// WithEvaluatorLogging attaches a logger for every rule evaluation.
func WithEvaluatorLogging(logger EvaluatorLogger) GraderOption {
	return func(g *Grader) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithContentText supplies the '#' namespace for rules.
func WithContentText(content map[string]string) GraderOption {
	return func(g *Grader) {
		g.content = content
	}
}

// WithGlobals supplies the '$' namespace for rules.
func WithGlobals(globals map[string]any) GraderOption {
	return func(g *Grader) {
		g.globals = globals
	}
}

// WithClock fixes the evaluation timestamp, for tests.
func WithClock(clock func() time.Time) GraderOption {
	return func(g *Grader) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// NewGrader builds a Grader over state. Without WithEvaluator it grades on
// the sigil engine with a shared program cache.
func NewGrader(state StateReader, opts ...GraderOption) (*Grader, error) {
	if state == nil {
		return nil, fmt.Errorf("grading: state reader is required")
	}
	g := &Grader{
		state:  state,
		logger: noopEvaluatorLogger{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.evaluator == nil {
		g.evaluator = NewSigilEvaluator(
			SigilWithProgramCache(expression.NewMemoryCache()),
			SigilWithFunctionRegistry(g.functions),
		)
	}
	return g, nil
}

// Gate evaluates rule under scope and reports whether the gate opens. A rule
// error keeps the gate shut and is returned.
func (g *Grader) Gate(ctx context.Context, scope, rule string) (bool, error) {
	result, err := g.evaluate(ctx, scope, rule)
	if err != nil {
		return false, err
	}
	return resultTruthy(result), nil
}

// Grade evaluates rule under scope and folds the result into a correctness
// verdict: booleans grade pass/fail, fractional scores in (0, 1) grade
// partially correct, a verdict string passes through, undefined results
// grade unanswered.
func (g *Grader) Grade(ctx context.Context, scope, rule string) (Outcome, error) {
	gradedAt := g.clock()
	result, err := g.evaluate(ctx, scope, rule)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Verdict:  verdictFor(result),
		Value:    result,
		Rule:     rule,
		Scope:    scope,
		GradedAt: gradedAt,
	}, nil
}

func (g *Grader) evaluate(ctx context.Context, scope, rule string) (any, error) {
	snapshot, err := g.state.SnapshotScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("grading: snapshot scope %q: %w", scope, err)
	}
	rctx := RuleContext{
		Snapshot: snapshot,
		Content:  g.content,
		Globals:  g.globals,
		Scope:    scope,
		Now:      g.clock(),
	}

	started := time.Now()
	result, err := g.evaluator.Evaluate(rctx, rule)
	g.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engineName(g.evaluator),
		Rule:     rule,
		Scope:    rctx.scopeLabel(),
		Duration: time.Since(started),
		Err:      err,
	})
	return result, err
}

func engineName(evaluator Evaluator) string {
	switch evaluator.(type) {
	case *sigilEvaluator:
		return "sigil"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		return fmt.Sprintf("%T", evaluator)
	}
}

func resultTruthy(result any) bool {
	switch v := result.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

func verdictFor(result any) string {
	switch v := result.(type) {
	case nil:
		return VerdictUnanswered
	case bool:
		if v {
			return VerdictCorrect
		}
		return VerdictIncorrect
	case string:
		switch v {
		case VerdictCorrect, VerdictIncorrect, VerdictPartiallyCorrect, VerdictUnanswered:
			return v
		}
		if v == "" {
			return VerdictUnanswered
		}
		return VerdictIncorrect
	default:
		if score, ok := scoreOf(result); ok {
			switch {
			case score <= 0:
				return VerdictIncorrect
			case score >= 1:
				return VerdictCorrect
			default:
				return VerdictPartiallyCorrect
			}
		}
		return VerdictIncorrect
	}
}

func scoreOf(result any) (float64, bool) {
	switch v := result.(type) {
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
