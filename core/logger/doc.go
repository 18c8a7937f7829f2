// Package logger builds the zap logger shared by the commands, services and DAOs.
//
// Level "debug" selects zap's development config, anything else the production one.
// Format "console" writes colored human readable lines, the default is JSON.
//
// Services and DAOs receive the logger in their constructor and never build their own.
// DAOs log claim races and erase outcomes at debug level; services log one info line per
// completed reindex run or erase.
//
// Admin handlers derive a request logger with WithRayID so every entry of a request
// carries the ray_id set by the rayid middleware:
//
//	l := logger.WithRayID(log, c)
//	l.Error("Erase failed", zap.Error(err))
package logger
