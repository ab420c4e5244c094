package grading

import (
	"fmt"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "sigil",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []SigilEvaluatorOption{}
			if cache != nil {
				opts = append(opts, SigilWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, SigilWithFunctionRegistry(registry))
			}
			return NewSigilEvaluator(opts...)
		},
	},
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
}

func init() {
	if !jsEvaluatorAvailable() {
		return
	}
	evaluatorFactories = append(evaluatorFactories, struct {
		name string
		new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
	}{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	})
}

func ruleContextFixture() RuleContext {
	return RuleContext{
		Snapshot: map[string]map[string]any{
			"q": {"answer": "b", "attempts": float64(2)},
		},
		Content: map[string]string{"intro": "welcome"},
		Globals: map[string]any{"threshold": float64(10)},
		Scope:   "lesson",
		Now:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func testToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func testRegistry(t *testing.T) *FunctionRegistry {
	t.Helper()
	registry := NewFunctionRegistry()
	err := registry.Register("double", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double takes one argument")
		}
		n, ok := testToFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("double takes a number, got %T", args[0])
		}
		return n * 2, nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return registry
}

func TestEvaluatorsAgreeOnRules(t *testing.T) {
	// Rules keyed per engine: the sigil engine addresses namespaces through
	// sigils, the others through bound variables.
	cases := []struct {
		name  string
		rules map[string]string
		want  bool
	}{
		{
			name: "arithmetic",
			rules: map[string]string{
				"sigil": "1 + 2 == 3",
				"expr":  "1 + 2 == 3",
				"cel":   "1 + 2 == 3",
				"js":    "1 + 2 == 3",
			},
			want: true,
		},
		{
			name: "state access",
			rules: map[string]string{
				"sigil": "@q.answer == 'b'",
				"expr":  "state.q.answer == 'b'",
				"cel":   "state.q.answer == 'b'",
				"js":    "state.q.answer == 'b'",
			},
			want: true,
		},
		{
			name: "globals threshold",
			rules: map[string]string{
				"sigil": "$threshold > 5",
				"expr":  "globals.threshold > 5.0",
				"cel":   "globals.threshold > 5.0",
				"js":    "globals.threshold > 5",
			},
			want: true,
		},
		{
			name: "registered function",
			rules: map[string]string{
				"sigil": "double(3) == 6",
				"expr":  "double(3.0) == 6.0",
				"cel":   "call('double', 3.0) == 6.0",
				"js":    "double(3) == 6",
			},
			want: true,
		},
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, testRegistry(t))
			for _, tc := range cases {
				rule, ok := tc.rules[factory.name]
				if !ok {
					continue
				}
				result, err := evaluator.Evaluate(ruleContextFixture(), rule)
				if err != nil {
					t.Fatalf("%s: Evaluate(%q) failed: %v", tc.name, rule, err)
				}
				if got := resultTruthy(result); got != tc.want {
					t.Fatalf("%s: Evaluate(%q) = %v (%v), expected %v", tc.name, rule, got, result, tc.want)
				}
			}
		})
	}
}

func TestEvaluatorsRejectEmptyRules(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			if _, err := evaluator.Evaluate(ruleContextFixture(), ""); err == nil {
				t.Fatalf("expected an error for an empty rule")
			}
			if _, err := evaluator.Compile(""); err == nil {
				t.Fatalf("expected an error compiling an empty rule")
			}
		})
	}
}

type countingCache struct {
	entries map[string]any
	hits    int
	sets    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.entries[key] = value
}

func TestEvaluatorsReusePrograms(t *testing.T) {
	rules := map[string]string{
		"sigil": "@q.attempts < 5",
		"expr":  "state.q.attempts < 5.0",
		"cel":   "state.q.attempts < 5.0",
		"js":    "state.q.attempts < 5",
	}
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			cache := newCountingCache()
			evaluator := factory.new(cache, nil)
			rule := rules[factory.name]

			for i := 0; i < 3; i++ {
				result, err := evaluator.Evaluate(ruleContextFixture(), rule)
				if err != nil {
					t.Fatalf("Evaluate failed on run %d: %v", i, err)
				}
				if !resultTruthy(result) {
					t.Fatalf("run %d evaluated to %v", i, result)
				}
			}
			if cache.sets != 1 {
				t.Fatalf("program compiled %d times, expected once", cache.sets)
			}
			if cache.hits < 2 {
				t.Fatalf("cache hit %d times, expected the later runs to reuse the program", cache.hits)
			}
		})
	}
}

func TestCompiledRulesAreReusable(t *testing.T) {
	rules := map[string]string{
		"sigil": "@q.answer == 'b'",
		"expr":  "state.q.answer == 'b'",
		"cel":   "state.q.answer == 'b'",
		"js":    "state.q.answer == 'b'",
	}
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(newCountingCache(), nil)
			compiled, err := evaluator.Compile(rules[factory.name])
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			for i := 0; i < 2; i++ {
				result, err := compiled.Evaluate(ruleContextFixture())
				if err != nil {
					t.Fatalf("compiled Evaluate failed on run %d: %v", i, err)
				}
				if !resultTruthy(result) {
					t.Fatalf("run %d evaluated to %v", i, result)
				}
			}
		})
	}
}
