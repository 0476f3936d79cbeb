package log

import (
	"context"
	"os"
	"time"
)

// Level gates which entries reach the outputs.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String renders the level name used by the formatters.
func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Fields carries an entry's structured context keyed by field name.
type Fields map[string]interface{}

// Well-known field keys threaded through the system.
const (
	CorrelationIDKey = "correlation_id"
	ComponentKey     = "component"
	OperationKey     = "operation"
)

// Entry is one log record handed to the Formatter.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Error     error
}

// Logger is the facade Grace components log through.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With binds fields onto a child logger.
	With(fields ...Field) Logger

	// WithContext binds the correlation id carried on ctx, if any.
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter renders an Entry to bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output receives formatted entries.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// sink is the concrete Logger: a level gate, bound fields, one
// formatter, and a fan-out to outputs.
type sink struct {
	level     Level
	bound     []Field
	formatter Formatter
	outputs   []Output
}

// LoggerOption customizes a logger under construction.
type LoggerOption func(*sink)

// WithLevel sets the minimum level that reaches the outputs.
func WithLevel(level Level) LoggerOption {
	return func(s *sink) { s.level = level }
}

// WithFormatter selects the entry renderer.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(s *sink) { s.formatter = formatter }
}

// WithOutput adds a destination for formatted entries.
func WithOutput(output Output) LoggerOption {
	return func(s *sink) { s.outputs = append(s.outputs, output) }
}

// NewLogger builds a Logger. Without options it logs text at InfoLevel
// to stderr.
func NewLogger(options ...LoggerOption) Logger {
	s := &sink{level: InfoLevel, formatter: &TextFormatter{}}
	for _, option := range options {
		option(s)
	}
	if len(s.outputs) == 0 {
		s.outputs = []Output{NewConsoleOutput()}
	}
	return s
}

func (s *sink) emit(level Level, msg string, fields []Field) {
	if level < s.level {
		return
	}
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    make(Fields, len(s.bound)+len(fields)),
		Timestamp: time.Now(),
	}
	for _, f := range s.bound {
		entry.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		// Err fields surface on the entry itself rather than the bag.
		if f.Key == "error" {
			if e, ok := f.Value.(error); ok {
				entry.Error = e
				continue
			}
		}
		entry.Fields[f.Key] = f.Value
	}
	formatted, err := s.formatter.Format(entry)
	if err != nil {
		return
	}
	for _, out := range s.outputs {
		_ = out.Write(entry, formatted)
	}
}

func (s *sink) Debug(msg string, fields ...Field) { s.emit(DebugLevel, msg, fields) }
func (s *sink) Info(msg string, fields ...Field)  { s.emit(InfoLevel, msg, fields) }
func (s *sink) Warn(msg string, fields ...Field)  { s.emit(WarnLevel, msg, fields) }
func (s *sink) Error(msg string, fields ...Field) { s.emit(ErrorLevel, msg, fields) }

// Fatal logs the entry and terminates the process.
func (s *sink) Fatal(msg string, fields ...Field) {
	s.emit(FatalLevel, msg, fields)
	os.Exit(1)
}

func (s *sink) With(fields ...Field) Logger {
	child := &sink{
		level:     s.level,
		formatter: s.formatter,
		outputs:   s.outputs,
		bound:     make([]Field, 0, len(s.bound)+len(fields)),
	}
	child.bound = append(child.bound, s.bound...)
	child.bound = append(child.bound, fields...)
	return child
}

func (s *sink) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return s
	}
	if v := ctx.Value(CorrelationIDKey); v != nil {
		return s.With(Any(CorrelationIDKey, v))
	}
	return s
}

func (s *sink) SetLevel(level Level) { s.level = level }
func (s *sink) GetLevel() Level      { return s.level }
