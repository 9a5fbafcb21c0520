// Package pipeline runs the guarded report operations: lock both managed
// directories, transfer intake reports into the published directory, check
// the published set against the required departments, back the published
// directory up, and unlock.
//
// Locking is a permission signal to external producers and consumers, not a
// hard guarantee; see Lock. The pipeline additionally serializes its own runs
// with an internal mutex. Unlock runs on every path, whatever the guarded
// steps did.
package pipeline
