/*
Package bincodec is a declarative binary-message codec engine: given a Go
struct whose fields carry `bincodec:"..."` struct tags describing a wire
layout (typed, sized, conditional, and optionally polymorphic fields), it
decodes a byte stream into a populated record and encodes the record back
into a byte stream whose bits are identical to the source.

The core pipeline is:

	bytes -> BitReader -> TemplateDispatcher picks a Template -> Parser walks
	the compiled FieldPlan -> one Codec per field -> a filled record

Encode is the mirror, driven by Parser.Encode against a BitWriter.

A record type is compiled once via Compiler.Compile (or registered with a
TemplateDispatcher for header-based multi-message parsing via Engine.Parse).
Expression-bearing annotations (Condition, Evaluate, Skip.size, Choices
conditions) are driven by a caller-supplied Evaluator; see evaluator/exprlang
for a reference implementation built on github.com/expr-lang/expr. Checksum
fields are verified by a caller-supplied Checksummer; see checksum/crc for
CRC-16-CCITT and xxhash-backed reference algorithms.
*/
package bincodec
