// Package api exposes tasks and snapshots over HTTP. Handlers are thin
// adapters: they decode and validate requests, call the services and map
// the domain error taxonomy onto status codes.
//
// Every /api route requires a bearer token whose subject is recorded as the
// actor of task mutations.
package api
