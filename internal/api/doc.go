// Package api exposes the HTTP surface of the solver service: request
// decoding and validation, authentication endpoints, solver-run
// endpoints, and the translation of internal errors into safe HTTP
// responses.
package api
