// Package stream implements routines for processing document event streams.
//
// The module is organized into several packages:
//
// - event: the events and their source locations
// - encoding/jsonl: line encoding of events
// - stream: transformers and the runner that drives them
// - stage: named stages, stage commands and pipeline definitions
// - transform: built-in stages
//
// These can be combined to form a document processing pipeline:
//
//	parse -> stage_1 -> ... -> stage_n -> render
//
// where each stage is a process reading events from its standard input and
// writing events to its standard output, or a Transformer in a Chain.
//
// Each stage in the pipeline is a streaming operation, so the whole pipeline
// can start producing output straight away.  This provides several
// advantages:
//
// - Memory usage doesn't increase with the size of the document
// - When piping output through tools like 'less' or 'head', output is
// available immediately without waiting for the entire document to be
// processed
// - Stages can be written in any language that can read and write lines of
// JSON
//
// The CLI utility is in the directory cmd/struck.  You can install it with:
//
//	go install github.com/arnodel/struckstream/cmd/struck
package stream
