// Package registry holds the subsystem managers of a single run.
//
// Managers are constructed from a fixed plan of Steps, strictly in plan
// order, because later managers receive earlier ones (most of them need the
// event bus). A manager exposing Initialize is initialized right after it is
// constructed and before the next step runs. Entries are only ever added;
// the first failing step stops construction.
package registry
