// Package logging configures the process-wide slog logger.
//
// Records are JSON on stderr and carry the operator's module name and
// version. The level comes from LOG_LEVEL (debug, info, warn, error) unless
// the caller passes one explicitly; debug records also include the source
// location.
//
//	logging.SetDefaultStructuredLoggerWithLevel("nna-operator", version, "debug")
//	slog.Info("certificates stored", "backend", "secret")
//
// NewLogLogger bridges components that only accept a *log.Logger, such as
// http.Server.ErrorLog, onto the same handler.
package logging
