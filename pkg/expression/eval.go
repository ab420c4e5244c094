package expression

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// Evaluate interprets expr against ctx. It is a pure function of both
// inputs: no hidden state, no mutation of ctx. Missing sigil references
// evaluate to nil (undefined) so conditions can be written defensively;
// calling an unregistered function or a method on an undefined value is an
// error.
func Evaluate(expr Expr, ctx *Context) (any, error) {
	if expr == nil {
		return nil, evalErrorf("nothing to evaluate")
	}
	if ctx == nil {
		ctx = NewContext(Context{})
	}
	ev := &evaluator{ctx: ctx}
	return ev.eval(expr)
}

type evaluator struct {
	ctx *Context
	// frames bind arrow-callback parameters, innermost last. Parameters
	// shadow every other identifier namespace.
	frames []map[string]any
}

// closure is an arrow literal bound to the frames live at its creation.
type closure struct {
	params []string
	body   Expr
	frames []map[string]any
}

func (ev *evaluator) eval(expr Expr) (any, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil
	case *SigilRef:
		return ev.sigil(e), nil
	case *Ident:
		return ev.lookupIdent(e.Name), nil
	case *Member:
		target, err := ev.eval(e.Target)
		if err != nil {
			return nil, err
		}
		return memberOf(target, e.Name), nil
	case *Unary:
		return ev.evalUnary(e)
	case *Binary:
		return ev.evalBinary(e)
	case *Conditional:
		cond, err := ev.eval(e.Cond)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return ev.eval(e.Then)
		}
		return ev.eval(e.Else)
	case *Arrow:
		return &closure{params: e.Params, body: e.Body, frames: slices.Clone(ev.frames)}, nil
	case *Template:
		return ev.evalTemplate(e)
	case *Object:
		return ev.evalObject(e)
	case *Call:
		return ev.evalCall(e)
	default:
		return nil, evalErrorf("unsupported expression node %T", expr)
	}
}

// sigil reads one of the three context namespaces. Absent entries are
// undefined, never an error.
func (ev *evaluator) sigil(ref *SigilRef) any {
	switch ref.Sigil {
	case "@":
		if value, ok := ev.ctx.ComponentState[ref.Name]; ok {
			return value
		}
	case "#":
		if text, ok := ev.ctx.Content[ref.Name]; ok {
			return text
		}
	case "$":
		if value, ok := ev.ctx.Globals[ref.Name]; ok {
			return value
		}
	}
	return nil
}

// lookupIdent resolves a bare identifier: callback parameters first, then
// built-in enumerations, the numeric namespace, registered functions, and
// finally caller bindings. Unknown names are undefined.
func (ev *evaluator) lookupIdent(name string) any {
	for i := len(ev.frames) - 1; i >= 0; i-- {
		if value, ok := ev.frames[i][name]; ok {
			return value
		}
	}
	if enum, ok := builtinEnums[name]; ok {
		return enum
	}
	if name == "math" {
		return builtinMath
	}
	if fn, ok := ev.ctx.Functions.Lookup(name); ok {
		return fn
	}
	if value, ok := ev.ctx.Bindings[name]; ok {
		return value
	}
	return nil
}

// memberOf reads a field of a value. Access on undefined yields undefined,
// keeping `@maybeMissing.value` safe; only calling into undefined is an
// error.
func memberOf(target any, name string) any {
	switch v := target.(type) {
	case nil:
		return nil
	case map[string]any:
		return v[name]
	case []any:
		if name == "length" {
			return float64(len(v))
		}
		return nil
	case string:
		if name == "length" {
			return float64(len([]rune(v)))
		}
		return nil
	default:
		return nil
	}
}

func (ev *evaluator) evalUnary(e *Unary) (any, error) {
	operand, err := ev.eval(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		return !truthy(operand), nil
	case "-":
		n, ok := asNumber(operand)
		if !ok {
			return nil, evalErrorf("cannot negate %s", describeValue(operand))
		}
		return -n, nil
	default:
		return nil, evalErrorf("unsupported unary operator %q", e.Op)
	}
}

func (ev *evaluator) evalBinary(e *Binary) (any, error) {
	left, err := ev.eval(e.Left)
	if err != nil {
		return nil, err
	}

	// Logical operators short-circuit and return the deciding operand.
	switch e.Op {
	case "&&":
		if !truthy(left) {
			return left, nil
		}
		return ev.eval(e.Right)
	case "||":
		if truthy(left) {
			return left, nil
		}
		return ev.eval(e.Right)
	}

	right, err := ev.eval(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "===":
		return strictEquals(left, right), nil
	case "!==":
		return !strictEquals(left, right), nil
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "<", "<=", ">", ">=":
		return compareValues(e.Op, left, right)
	case "+":
		if ls, ok := left.(string); ok {
			return ls + formatValue(right), nil
		}
		if rs, ok := right.(string); ok {
			return formatValue(left) + rs, nil
		}
		return ev.arith(e.Op, left, right)
	case "-", "*", "/", "%":
		return ev.arith(e.Op, left, right)
	default:
		return nil, evalErrorf("unsupported operator %q", e.Op)
	}
}

func (ev *evaluator) arith(op string, left, right any) (any, error) {
	l, ok := asNumber(left)
	if !ok {
		return nil, evalErrorf("cannot apply %q to %s", op, describeValue(left))
	}
	r, ok := asNumber(right)
	if !ok {
		return nil, evalErrorf("cannot apply %q to %s", op, describeValue(right))
	}
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "%":
		return math.Mod(l, r), nil
	default:
		return nil, evalErrorf("unsupported operator %q", op)
	}
}

func (ev *evaluator) evalTemplate(e *Template) (any, error) {
	out := e.Chunks[0]
	for i, expr := range e.Exprs {
		value, err := ev.eval(expr)
		if err != nil {
			return nil, err
		}
		out += formatValue(value) + e.Chunks[i+1]
	}
	return out, nil
}

func (ev *evaluator) evalObject(e *Object) (any, error) {
	obj := make(map[string]any, len(e.Keys))
	for i, key := range e.Keys {
		value, err := ev.eval(e.Values[i])
		if err != nil {
			return nil, err
		}
		obj[key] = value
	}
	return obj, nil
}

func (ev *evaluator) evalCall(e *Call) (any, error) {
	if member, ok := e.Callee.(*Member); ok {
		return ev.evalMethodCall(member, e.Args)
	}

	if ident, ok := e.Callee.(*Ident); ok {
		callee := ev.lookupIdent(ident.Name)
		if callee == nil {
			return nil, &UnknownFunctionError{Name: ident.Name}
		}
		return ev.invoke(callee, ident.Name, e.Args)
	}

	callee, err := ev.eval(e.Callee)
	if err != nil {
		return nil, err
	}
	if callee == nil {
		return nil, evalErrorf("cannot call an undefined value")
	}
	return ev.invoke(callee, "(anonymous)", e.Args)
}

func (ev *evaluator) evalMethodCall(member *Member, args []Expr) (any, error) {
	target, err := ev.eval(member.Target)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, evalErrorf("cannot call .%s() on an undefined value; the reference it is called on resolved to nothing", member.Name)
	}

	if list, ok := target.([]any); ok {
		switch member.Name {
		case "every", "some", "filter":
			return ev.arrayMethod(member.Name, list, args)
		}
	}

	value := memberOf(target, member.Name)
	if value == nil {
		return nil, &UnknownFunctionError{Name: member.Name}
	}
	return ev.invoke(value, member.Name, args)
}

// arrayMethod implements the array-style predicate methods. every and some
// short-circuit once the answer is determined, so predicates never run
// against elements that cannot change the result.
func (ev *evaluator) arrayMethod(name string, list []any, args []Expr) (any, error) {
	if len(args) != 1 {
		return nil, evalErrorf(".%s() takes exactly one callback, got %d arguments", name, len(args))
	}
	callback, err := ev.eval(args[0])
	if err != nil {
		return nil, err
	}

	call := func(item any, index int) (any, error) {
		return ev.invokeValues(callback, name+" callback", []any{item, float64(index)})
	}

	switch name {
	case "every":
		for i, item := range list {
			result, err := call(item, i)
			if err != nil {
				return nil, err
			}
			if !truthy(result) {
				return false, nil
			}
		}
		return true, nil
	case "some":
		for i, item := range list {
			result, err := call(item, i)
			if err != nil {
				return nil, err
			}
			if truthy(result) {
				return true, nil
			}
		}
		return false, nil
	case "filter":
		kept := make([]any, 0, len(list))
		for i, item := range list {
			result, err := call(item, i)
			if err != nil {
				return nil, err
			}
			if truthy(result) {
				kept = append(kept, item)
			}
		}
		return kept, nil
	default:
		return nil, evalErrorf("unsupported array method %q", name)
	}
}

func (ev *evaluator) invoke(callee any, name string, args []Expr) (any, error) {
	// Arguments evaluate left to right before the call.
	values := make([]any, len(args))
	for i, arg := range args {
		value, err := ev.eval(arg)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return ev.invokeValues(callee, name, values)
}

func (ev *evaluator) invokeValues(callee any, name string, values []any) (any, error) {
	switch fn := callee.(type) {
	case Function:
		return fn(values...)
	case func(args ...any) (any, error):
		return fn(values...)
	case *closure:
		frame := make(map[string]any, len(fn.params))
		for i, param := range fn.params {
			if i < len(values) {
				frame[param] = values[i]
			} else {
				frame[param] = nil
			}
		}
		saved := ev.frames
		ev.frames = append(slices.Clone(fn.frames), frame)
		defer func() { ev.frames = saved }()
		return ev.eval(fn.body)
	default:
		return nil, evalErrorf("%s is not callable (%s)", name, describeValue(callee))
	}
}

// truthy follows the conventional rules: undefined, false, zero, NaN and
// the empty string are false, everything else true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	default:
		if n, ok := asNumber(value); ok {
			return n != 0 && !math.IsNaN(n)
		}
		return true
	}
}

// asNumber accepts the numeric shapes that reach the evaluator: parsed
// literals are float64, Go callers may bind ints.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func strictEquals(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	ln, lok := asNumber(left)
	rn, rok := asNumber(right)
	if lok || rok {
		return lok && rok && ln == rn
	}
	if reflect.TypeOf(left) != reflect.TypeOf(right) {
		return false
	}
	switch l := left.(type) {
	case string:
		return l == right.(string)
	case bool:
		return l == right.(bool)
	default:
		return reflect.DeepEqual(left, right)
	}
}

// looseEquals adds numeric coercion on top of strict equality: a numeric
// string compares equal to its number, booleans coerce to 0/1.
func looseEquals(left, right any) bool {
	if strictEquals(left, right) {
		return true
	}
	ln, lok := coerceNumber(left)
	rn, rok := coerceNumber(right)
	return lok && rok && ln == rn
}

func coerceNumber(value any) (float64, bool) {
	if n, ok := asNumber(value); ok {
		return n, true
	}
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func compareValues(op string, left, right any) (any, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
		}
	}
	l, lok := asNumber(left)
	r, rok := asNumber(right)
	if !lok || !rok {
		return nil, evalErrorf("cannot compare %s with %s", describeValue(left), describeValue(right))
	}
	switch op {
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	default:
		return nil, evalErrorf("unsupported comparison %q", op)
	}
}

// formatValue renders a value into a template string.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "undefined"
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		if n, ok := asNumber(value); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return fmt.Sprintf("%v", value)
	}
}

func describeValue(value any) string {
	if value == nil {
		return "an undefined value"
	}
	return fmt.Sprintf("%T (%v)", value, value)
}
