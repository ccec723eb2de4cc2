// Package handler is the HTTP entry point after the router.
//
// It parses requests, validates them with the validation package and calls
// the service layer. Besides the dashboard API it serves the health and
// status endpoints uptime monitors poll.
package handler
