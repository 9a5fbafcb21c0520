// Package ipc carries progress messages between the scheduler and delegated
// pipeline workers over a named pipe.
//
// The channel is duplex and non-blocking: an empty pipe is a normal "no
// message" result, never an error. Every message travels as one fixed-size
// record with a magic header and a length-prefixed JSON payload, so a reader
// can always tell a whole record from wire corruption. Workers dispatched via
// Dispatch send exactly one completion record and deliver their result once
// on a buffered channel.
package ipc
