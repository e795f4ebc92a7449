// Package filesystem provides filesystem implementations for tapkit.
//
// This package contains the FS interface used by the action executor and
// the state store, the standard OS implementation, and a fault-injecting
// wrapper used to exercise rollback paths.
package filesystem
