// Package lib holds modules that do not fit strictly into other layers.
//
// It contains background job processing (Asynq on Redis, or inline
// delivery without it) and small shared utilities.
package lib
