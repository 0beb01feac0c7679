/*
Package scope provides CLI tooling to store and share versioned components.

A scope keeps the history of components as immutable objects in a content-addressed
store. Components are snapped and tagged in a local scope, then exported to remote
scopes from which other scopes import them with their history and dependencies.
*/
package scope
