/*
Package reader implements bone's textual surface syntax: tokenization and a recursive-descent
parse of one s-expression at a time from an io.Reader.

Numbers, strings, symbols, the quote family, the `|` lambda short form, and `#t`/`#f`/`#!` are all
handled by one dispatch function, Reader.Read, following the grammar the original implementation's
single-pass reader function establishes. There is no separate tokenizer pass producing a token
stream for a parser to consume; like the teacher's own assembler, syntax and construction happen
together, one byte of lookahead at a time.
*/
package reader
