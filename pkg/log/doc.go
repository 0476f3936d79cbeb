// Package log is Grace's structured logging facade.
//
// Components receive a Logger by injection, tag their output with
// Component(...), and attach structured context as Field values. A
// logger is a level gate in front of one Formatter and any number of
// Outputs; child loggers created with With share those and add bound
// fields.
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	).With(log.Component("branch-actor"))
//	l.Info("turn complete", log.Str("entity", id), log.Duration("took", d))
//
// ApplyConfig builds a logger from GRACE_LOG_LEVEL / GRACE_LOG_FORMAT
// style settings, and RedirectStdLog routes the standard library's
// default logger (Pebble uses it) into the same sink.
package log
