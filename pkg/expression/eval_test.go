package expression

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func evalSource(t *testing.T, source string, ctx *Context) any {
	t.Helper()
	expr := mustParse(t, source)
	value, err := Evaluate(expr, ctx)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", source, err)
	}
	return value
}

func TestEvaluateGradingCondition(t *testing.T) {
	ctx := NewContext(Context{
		ComponentState: map[string]any{
			"q": map[string]any{"correct": "correct"},
		},
	})
	if got := evalSource(t, "@q.correct === correctness.correct", ctx); got != true {
		t.Fatalf("expected the condition to hold, got %v", got)
	}

	ctx.ComponentState["q"] = map[string]any{"correct": "incorrect"}
	if got := evalSource(t, "@q.correct === correctness.correct", ctx); got != false {
		t.Fatalf("expected the condition to fail after the answer changed, got %v", got)
	}
}

func TestEvaluateScalarOperators(t *testing.T) {
	cases := []struct {
		source string
		want   any
	}{
		{"1 + 2 * 3", float64(7)},
		{"(1 + 2) * 3", float64(9)},
		{"10 % 3", float64(1)},
		{"7 / 2", 3.5},
		{"-4 + 1", float64(-3)},
		{"'ab' + 'cd'", "abcd"},
		{"'score: ' + 3", "score: 3"},
		{"1 < 2", true},
		{"2 <= 1", false},
		{"'apple' < 'banana'", true},
		{"1 == '1'", true},
		{"1 === '1'", false},
		{"1 != '1'", false},
		{"1 !== '1'", true},
		{"true == 1", true},
		{"true === 1", false},
		{"!false", true},
		{"!''", true},
		{"!!'text'", true},
		{"true ? 'a' : 'b'", "a"},
		{"0 ? 'a' : 'b'", "b"},
	}
	ctx := NewContext(Context{})
	for _, tc := range cases {
		if got := evalSource(t, tc.source, ctx); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Evaluate(%q) = %#v, expected %#v", tc.source, got, tc.want)
		}
	}
}

func TestEvaluateMissingReferencesAreUndefined(t *testing.T) {
	ctx := NewContext(Context{})
	cases := []string{"@missing", "#missing", "$missing", "@missing.deep.field", "unknownName"}
	for _, source := range cases {
		if got := evalSource(t, source, ctx); got != nil {
			t.Fatalf("Evaluate(%q) = %#v, expected undefined", source, got)
		}
	}
	// Undefined is usable in conditions without erroring.
	if got := evalSource(t, "@missing ? 'set' : 'unset'", ctx); got != "unset" {
		t.Fatalf("expected undefined to be falsy, got %v", got)
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	registry := NewFunctionRegistry()
	calls := 0
	if err := registry.Register("boom", func(args ...any) (any, error) {
		calls++
		return nil, errors.New("should not run")
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	ctx := NewContext(Context{Functions: registry})

	cases := []struct {
		source string
		want   any
	}{
		{"false && boom()", false},
		{"true || boom()", true},
		{"false ? boom() : 'safe'", "safe"},
	}
	for _, tc := range cases {
		if got := evalSource(t, tc.source, ctx); got != tc.want {
			t.Fatalf("Evaluate(%q) = %v, expected %v", tc.source, got, tc.want)
		}
	}
	if calls != 0 {
		t.Fatalf("boom ran %d times despite short-circuiting", calls)
	}
}

func TestEvaluateTemplates(t *testing.T) {
	ctx := NewContext(Context{
		ComponentState: map[string]any{"quiz": map[string]any{"score": float64(8)}},
		Globals:        map[string]any{"total": float64(10)},
	})
	got := evalSource(t, "`Score: ${@quiz.score} of ${$total}`", ctx)
	if got != "Score: 8 of 10" {
		t.Fatalf("template rendered %q", got)
	}
	if got := evalSource(t, "`half: ${1 / 2}`", ctx); got != "half: 0.5" {
		t.Fatalf("fractional render %q", got)
	}
	if got := evalSource(t, "`missing: ${@nothing}`", ctx); got != "missing: undefined" {
		t.Fatalf("undefined render %q", got)
	}
}

func TestEvaluateArrayMethods(t *testing.T) {
	ctx := NewContext(Context{
		Bindings: map[string]any{
			"answers": []any{
				map[string]any{"correct": "correct"},
				map[string]any{"correct": "correct"},
				map[string]any{"correct": "incorrect"},
			},
			"numbers": []any{float64(1), float64(2), float64(3), float64(4)},
		},
	})

	if got := evalSource(t, "answers.every(a => a.correct === correctness.correct)", ctx); got != false {
		t.Fatalf("every = %v, expected false", got)
	}
	if got := evalSource(t, "answers.some(a => a.correct === correctness.incorrect)", ctx); got != true {
		t.Fatalf("some = %v, expected true", got)
	}

	kept := evalSource(t, "numbers.filter(n => n % 2 === 0)", ctx)
	if !reflect.DeepEqual(kept, []any{float64(2), float64(4)}) {
		t.Fatalf("filter = %#v", kept)
	}

	if got := evalSource(t, "numbers.length", ctx); got != float64(4) {
		t.Fatalf("length = %v", got)
	}
	if got := evalSource(t, "'hello'.length", ctx); got != float64(5) {
		t.Fatalf("string length = %v", got)
	}

	// Index parameter is the second callback argument.
	if got := evalSource(t, "numbers.some((n, i) => i === 3)", ctx); got != true {
		t.Fatalf("index-aware some = %v", got)
	}
}

func TestEvaluateArrayMethodShortCircuit(t *testing.T) {
	registry := NewFunctionRegistry()
	seen := 0
	if err := registry.Register("record", func(args ...any) (any, error) {
		seen++
		return args[0], nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	ctx := NewContext(Context{
		Bindings:  map[string]any{"flags": []any{false, true, true, true}},
		Functions: registry,
	})
	if got := evalSource(t, "flags.some(f => record(f))", ctx); got != true {
		t.Fatalf("some = %v", got)
	}
	if seen != 2 {
		t.Fatalf("predicate ran %d times, expected it to stop after the first true", seen)
	}
}

func TestEvaluateBuiltinNamespaces(t *testing.T) {
	ctx := NewContext(Context{})
	cases := []struct {
		source string
		want   any
	}{
		{"correctness.partiallyCorrect", "partiallyCorrect"},
		{"progress.inProgress", "inProgress"},
		{"math.floor(3.9)", float64(3)},
		{"math.ceil(3.1)", float64(4)},
		{"math.round(2.5)", float64(3)},
		{"math.abs(0 - 7)", float64(7)},
		{"math.min(4, 2, 9)", float64(2)},
		{"math.max(4, 2, 9)", float64(9)},
	}
	for _, tc := range cases {
		if got := evalSource(t, tc.source, ctx); got != tc.want {
			t.Fatalf("Evaluate(%q) = %v, expected %v", tc.source, got, tc.want)
		}
	}
	if got := evalSource(t, "math.pi", ctx).(float64); got < 3.14 || got > 3.15 {
		t.Fatalf("math.pi = %v", got)
	}
}

func TestEvaluateWordCountHelper(t *testing.T) {
	ctx := NewContext(Context{
		Content: map[string]string{"essayPrompt": "Write about   your favorite book"},
	})
	if got := evalSource(t, "wordCount(#essayPrompt)", ctx); got != float64(5) {
		t.Fatalf("wordCount = %v", got)
	}
	if got := evalSource(t, "wordCount(#missing)", ctx); got != float64(0) {
		t.Fatalf("wordCount of undefined = %v, expected 0", got)
	}
	if got := evalSource(t, "wordCount(@essay.text) >= $minWords", NewContext(Context{
		ComponentState: map[string]any{"essay": map[string]any{"text": "one two three"}},
		Globals:        map[string]any{"minWords": float64(3)},
	})); got != true {
		t.Fatalf("word gate = %v", got)
	}
}

func TestEvaluateObjectLiteral(t *testing.T) {
	ctx := NewContext(Context{Globals: map[string]any{"attempts": float64(2)}})
	value := evalSource(t, "{ kind: 'quiz', tries: $attempts + 1 }", ctx)
	obj, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", value)
	}
	if obj["kind"] != "quiz" || obj["tries"] != float64(3) {
		t.Fatalf("unexpected object %#v", obj)
	}
}

func TestEvaluateUnknownFunction(t *testing.T) {
	_, err := Evaluate(mustParse(t, "nope(1)"), NewContext(Context{}))
	var unknown *UnknownFunctionError
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Fatalf("expected UnknownFunctionError for nope, got %v", err)
	}
}

func TestEvaluateMethodOnUndefined(t *testing.T) {
	_, err := Evaluate(mustParse(t, "@missing.every(x => x)"), NewContext(Context{}))
	if err == nil {
		t.Fatalf("expected an error calling a method on undefined")
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvalError, got %T", err)
	}
	if !strings.Contains(err.Error(), "every") {
		t.Fatalf("error should name the method: %v", err)
	}
}

func TestEvaluateArrowClosuresCaptureOuterParams(t *testing.T) {
	ctx := NewContext(Context{
		Bindings: map[string]any{
			"rows": []any{
				[]any{float64(1), float64(2)},
				[]any{float64(3), float64(4)},
			},
		},
		Globals: map[string]any{"limit": float64(4)},
	})
	got := evalSource(t, "rows.every(row => row.every(cell => cell <= $limit))", ctx)
	if got != true {
		t.Fatalf("nested arrows = %v", got)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	state := map[string]any{"q": map[string]any{"correct": "correct"}}
	ctx := NewContext(Context{ComponentState: state})
	expr := mustParse(t, "@q.correct === correctness.correct && wordCount('a b') === 2")

	first, err := Evaluate(expr, ctx)
	if err != nil {
		t.Fatalf("first evaluation failed: %v", err)
	}
	second, err := Evaluate(expr, ctx)
	if err != nil {
		t.Fatalf("second evaluation failed: %v", err)
	}
	if first != second {
		t.Fatalf("re-evaluation diverged: %v then %v", first, second)
	}
	if len(state) != 1 || len(state["q"].(map[string]any)) != 1 {
		t.Fatalf("evaluation mutated the component state: %#v", state)
	}
}

func TestEvaluateArithmeticOnUndefinedFails(t *testing.T) {
	_, err := Evaluate(mustParse(t, "@missing * 2"), NewContext(Context{}))
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvalError for arithmetic on undefined, got %v", err)
	}
}
