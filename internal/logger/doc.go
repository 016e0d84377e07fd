// Package logger provides a simple, thread-safe leveled logger.
//
// Each line carries a timestamp, the level, an optional scope (usually a
// pool name such as "root" or "pool-1a2b3c4d") and the message.
//
// # Basic Usage
//
//	logger.Info("", "workpool started")
//	logger.Debug("root", "worker %d exited", id)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Warn("root", "job panicked: %v", r)
//
// # Log Levels
//
// Messages below the configured level are filtered. ParseLevel converts the
// names used in config files and flags ("debug", "info", "warn", "error").
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
