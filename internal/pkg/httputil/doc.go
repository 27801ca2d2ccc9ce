// Package httputil holds small HTTP response helpers shared by all API
// handlers. Error responses on family-reachable surfaces must stay generic:
// InternalError never echoes the underlying error to the client.
package httputil
