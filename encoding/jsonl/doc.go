// Package jsonl implements the line encoding of event streams: one JSON value
// per line, each decoding to exactly one event plus an optional location.
//
// How the location is carried is decided by the Convention, which must be
// fixed for a whole pipeline.  See Embedded and Paired.
package jsonl
