// Package syntax parses Quarto and Pandoc flavored Markdown into a
// concrete syntax tree.
//
// The tree partitions its input: the leaves, read in order, reproduce the
// source byte for byte. Named nodes are grammar variants such as
// executable_code_cell or cross_reference; anonymous nodes, whose kinds
// start with an underscore, cover punctuation, whitespace and line breaks.
// Children that play a role in their parent are tagged with a field name
// (language, attributes, content, ...), and consumers are expected to
// query the tree by kind and field.
//
// Parsing is total. Regions the grammar cannot match are wrapped in ERROR
// nodes and reported in Tree.Diagnostics; Parse never fails.
//
// Alternatives are resolved by a process-wide RuleTable: a static
// precedence per rule, a dynamic precedence that refines fenced divs by
// their classes, and a list of rule pairs that are allowed to compete for
// the same input. Tokens whose legality depends on context (table start,
// chunk-option marker, cell boundary) come from a small moded lexer.
package syntax
