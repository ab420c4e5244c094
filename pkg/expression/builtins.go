package expression

import "math"

// Built-in enumerations: fixed-vocabulary status constants whose values are
// their own names, so `@q.correct === correctness.correct` compares against
// the string the grading layer writes into state.
var builtinEnums = map[string]map[string]any{
	"correctness": {
		"correct":          "correct",
		"incorrect":        "incorrect",
		"partiallyCorrect": "partiallyCorrect",
		"unanswered":       "unanswered",
	},
	"progress": {
		"unstarted":  "unstarted",
		"inProgress": "inProgress",
		"complete":   "complete",
	},
}

// builtinMath is the numeric namespace. Functions are exposed as ordinary
// callables so `math.floor(x)` works like any other call.
var builtinMath = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
	"floor": Function(func(args ...any) (any, error) {
		return mathUnary("math.floor", math.Floor, args)
	}),
	"ceil": Function(func(args ...any) (any, error) {
		return mathUnary("math.ceil", math.Ceil, args)
	}),
	"round": Function(func(args ...any) (any, error) {
		return mathUnary("math.round", math.Round, args)
	}),
	"abs": Function(func(args ...any) (any, error) {
		return mathUnary("math.abs", math.Abs, args)
	}),
	"min": Function(func(args ...any) (any, error) {
		return mathFold("math.min", math.Min, args)
	}),
	"max": Function(func(args ...any) (any, error) {
		return mathFold("math.max", math.Max, args)
	}),
}

func mathUnary(name string, fn func(float64) float64, args []any) (any, error) {
	if len(args) != 1 {
		return nil, evalErrorf("%s takes one argument, got %d", name, len(args))
	}
	n, ok := asNumber(args[0])
	if !ok {
		return nil, evalErrorf("%s takes a number, got %v", name, describeValue(args[0]))
	}
	return fn(n), nil
}

func mathFold(name string, fn func(float64, float64) float64, args []any) (any, error) {
	if len(args) == 0 {
		return nil, evalErrorf("%s needs at least one argument", name)
	}
	acc, ok := asNumber(args[0])
	if !ok {
		return nil, evalErrorf("%s takes numbers, got %v", name, describeValue(args[0]))
	}
	for _, arg := range args[1:] {
		n, ok := asNumber(arg)
		if !ok {
			return nil, evalErrorf("%s takes numbers, got %v", name, describeValue(arg))
		}
		acc = fn(acc, n)
	}
	return acc, nil
}
