// Package expression implements the small declarative language embedded in
// content attributes: sigil references into component state ('@'), content
// text ('#') and globals ('$'), comparison and arithmetic operators, arrow
// callbacks, template literals and a few built-in namespaces.
//
// Parsing and evaluation are split so graphs can be validated without being
// run: Parse produces an immutable AST (with TryParse for collect-all
// validation passes) and Evaluate walks it against a Context. Both are pure,
// which is what makes caching parsed programs and sharing one Context across
// many expressions safe.
package expression
