// Package logging adapts the teacher's hand-rolled structured logger to
// the judge service: level-gated entries rendered as one text line each
// ("[time] LEVEL service - message key:value ...") over the standard log
// package. A correlation id can be stored in a context (WithCorrelationID)
// and attached to entries through WithContext.
package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	default:
		return Info
	}
}

type Entry struct {
	Timestamp     time.Time
	Level         string
	Service       string
	Message       string
	CorrelationID string
	Fields        map[string]interface{}
}

type Logger struct {
	serviceName string
	level       Level
	out         *log.Logger
}

func New(serviceName string, level Level) *Logger {
	return &Logger{
		serviceName: serviceName,
		level:       level,
		out:         log.New(os.Stdout, "", 0),
	}
}

func (l *Logger) log(level Level, correlationID, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}
	entry := Entry{
		Timestamp:     time.Now().UTC(),
		Level:         level.String(),
		Service:       l.serviceName,
		Message:       message,
		CorrelationID: correlationID,
		Fields:        fields,
	}
	line := fmt.Sprintf("[%s] %s %s - %s", entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Service, entry.Message)
	if entry.CorrelationID != "" {
		line += fmt.Sprintf(" [correlation_id:%s]", entry.CorrelationID)
	}
	for k, v := range entry.Fields {
		line += fmt.Sprintf(" %s:%v", k, v)
	}
	l.out.Println(line)
	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) Debug(message string, fields ...map[string]interface{}) {
	l.log(Debug, "", message, merge(fields))
}

func (l *Logger) Info(message string, fields ...map[string]interface{}) {
	l.log(Info, "", message, merge(fields))
}

func (l *Logger) Warn(message string, fields ...map[string]interface{}) {
	l.log(Warn, "", message, merge(fields))
}

func (l *Logger) Error(message string, fields ...map[string]interface{}) {
	l.log(Error, "", message, merge(fields))
}

func (l *Logger) Fatal(message string, fields ...map[string]interface{}) {
	l.log(Fatal, "", message, merge(fields))
}

// WithContext returns a bound logger that attaches ctx's correlation id
// (if any) to every entry.
func (l *Logger) WithContext(ctx context.Context) *Context {
	return &Context{logger: l, correlationID: CorrelationID(ctx)}
}

type Context struct {
	logger        *Logger
	correlationID string
}

func (c *Context) Debug(message string, fields ...map[string]interface{}) {
	c.logger.log(Debug, c.correlationID, message, merge(fields))
}

func (c *Context) Info(message string, fields ...map[string]interface{}) {
	c.logger.log(Info, c.correlationID, message, merge(fields))
}

func (c *Context) Warn(message string, fields ...map[string]interface{}) {
	c.logger.log(Warn, c.correlationID, message, merge(fields))
}

func (c *Context) Error(message string, fields ...map[string]interface{}) {
	c.logger.log(Error, c.correlationID, message, merge(fields))
}

func merge(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id to ctx, generating one with
// uuid.New if id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	if v := ctx.Value(correlationIDKey{}); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
