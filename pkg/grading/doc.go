// Package grading evaluates gating and grading rules against component
// state snapshots. The Grader snapshots a scope, hands the snapshot to a
// rule engine and folds the result into a gate decision or a correctness
// verdict.
//
// Engines are pluggable behind the Evaluator interface. The default sigil
// engine runs the same expression language content attributes use, so
// '@quiz.correct === correctness.correct' means the same thing in a gate as
// in a rendered condition. Evaluators backed by expr-lang/expr, cel-go and
// goja (behind the js_eval build tag) are available for embedders with an
// existing rule corpus in one of those languages; they bind the namespaces
// as state, content and globals variables instead of sigils.
package grading
