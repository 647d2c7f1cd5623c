// Package scene defines the contract for the externally owned host graph and
// provides an in-memory host used by tests and the standalone binary.
//
// The engine can only poll the host. Graph exposes two primitives: a snapshot
// enumeration by kind and an identity lookup used for ancestor walks. Nothing is
// pushed to the engine; a node returned by one call may be gone by the next.
//
// Memory is a mutable, lock-guarded host. It also implements the marker
// factory contract, so owned marker visuals show up in the graph as child nodes
// of their anchors, exactly as they would in a real scene.
package scene
