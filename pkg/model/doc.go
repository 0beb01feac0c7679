// Package model describes the base objects manipulated by a scope.
//
// Every persisted object is a BitObject: it knows its hash, its type and the
// other objects it references, and serializes itself to a byte slice.
//
// The object model is composed of:
//
//  Components:
//    A ModelComponent is the identity (scope, name) of a component, with every tag it ever had
//    and the hash of its current head. It is stored under a hash derived from its identity,
//    so that a new revision replaces the previous one.
//
//  Versions:
//    A Version is an immutable point in the history of a component, analogous to a commit in git.
//    Versions point to their parents, forming a DAG. An untagged version is called a snap.
//
//  Sources:
//    The raw content of a file referenced by a version.
//
//  Lanes:
//    A Lane is a named set of component heads, diverging from the main history.
//
//  Symlinks:
//    A legacy pointer from a bare component name to its scoped identity.
package model
