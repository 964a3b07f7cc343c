// Package sgml converts between the EDGAR SGML submission header and a
// structured record tree.
//
// Decode is a recursive-descent parser over index ranges of a flat line
// sequence. For every opening tag it looks ahead for a matching close tag at
// the same nesting level: a match makes the tag hierarchical, no match makes
// it data-bearing. Repetition of a tag is legal only for the array tags of
// package tags, and array tags always decode to lists so the record shape
// never depends on how many times a tag happened to appear.
//
// Encode is the inverse: it renders a record through the canonical header
// templates, so records rebuilt from relational storage (where field order is
// lost) come out in EDGAR order. Fields the templates do not know keep their
// position relative to the known field that preceded them.
package sgml
