// Package network implements the client side of the remote scope protocol.
//
// Every logical operation opens a connection to the remote scope, issues one action,
// interprets the response and closes the connection.
//
// Failures are reported by the remote as a numeric code with an optional structured
// payload. ErrorFromCode maps every code to a typed error, and CodeFromError does the
// reverse on the remote side.
package network
