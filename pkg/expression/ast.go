package expression

// Expr is one node of a parsed expression. ASTs are immutable and safe to
// cache keyed on their source string, since parsing is pure.
type Expr interface {
	// Pos returns the byte offset of the node in its source.
	Pos() int
	exprNode()
}

type position int

func (p position) Pos() int { return int(p) }

// Literal is a number, string or boolean constant.
type Literal struct {
	position
	Value any
}

// Ident is a bare identifier, resolved at evaluation time against the
// built-in enumerations, the numeric namespace, the function registry and
// finally the context bindings.
type Ident struct {
	position
	Name string
}

// SigilRef reads one of the three context namespaces: '@' scoped component
// state, '#' static content text, '$' global variables.
type SigilRef struct {
	position
	Sigil string
	Name  string
}

// Member accesses a field of its target, `target.name`.
type Member struct {
	position
	Target Expr
	Name   string
}

// Call invokes a function or method with evaluated arguments.
type Call struct {
	position
	Callee Expr
	Args   []Expr
}

// Unary is `!x` or `-x`.
type Unary struct {
	position
	Op      string
	Operand Expr
}

// Binary is an infix operation. The left operand always evaluates first;
// `&&` and `||` short-circuit.
type Binary struct {
	position
	Op    string
	Left  Expr
	Right Expr
}

// Conditional is the ternary `cond ? then : else`; only the taken branch
// evaluates.
type Conditional struct {
	position
	Cond Expr
	Then Expr
	Else Expr
}

// Arrow is a callback literal, `x => body` or `(a, b) => body`, passed to
// array-style methods and registered functions.
type Arrow struct {
	position
	Params []string
	Body   Expr
}

// Template is a backtick string with interpolations. Chunks has exactly one
// more element than Exprs; the rendering interleaves them.
type Template struct {
	position
	Chunks []string
	Exprs  []Expr
}

// Object is an object-literal option bag, `{limit: 3, strict: true}`. Keys
// preserves authored order.
type Object struct {
	position
	Keys   []string
	Values []Expr
}

func (*Literal) exprNode()     {}
func (*Ident) exprNode()       {}
func (*SigilRef) exprNode()    {}
func (*Member) exprNode()      {}
func (*Call) exprNode()        {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Conditional) exprNode() {}
func (*Arrow) exprNode()       {}
func (*Template) exprNode()    {}
func (*Object) exprNode()      {}
