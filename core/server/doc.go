// Package server holds the admin HTTP server configuration and the mapping from the
// error taxonomy to HTTP statuses shared by every feature handler.
package server
