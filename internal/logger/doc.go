// Package logger provides a small levelled logging facade backed by zap.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, message and, when given,
// the address of the node that produced it as a structured "node" field.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Listening on %s...", addr)
//	logger.Debug("127.0.0.1:4000", "received GET request for key '%s'", key)
//	logger.Error("127.0.0.1:4000", "Failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("127.0.0.1:4001", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages (the server's --verbose mode)
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// The level is an atomic value and the output is locked, so all logging
// operations are safe for concurrent use.
package logger
