package logging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/insightgrid/platform/shared/types"
)

// Logger wraps zap.Logger with additional functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// Config represents logger configuration
type Config struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	Output      string `json:"output" yaml:"output"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Development bool   `json:"development" yaml:"development"`
}

// Field represents a log field
type Field = zapcore.Field

// NewLogger creates a new logger instance
func NewLogger(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// Configure output format
	switch strings.ToLower(config.Format) {
	case "json":
		zapConfig.Encoding = "json"
	case "console":
		zapConfig.Encoding = "console"
	default:
		zapConfig.Encoding = "json"
	}

	// Configure output destination
	switch strings.ToLower(config.Output) {
	case "stdout":
		zapConfig.OutputPaths = []string{"stdout"}
	case "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
	case "":
		zapConfig.OutputPaths = []string{"stdout"}
	default:
		zapConfig.OutputPaths = []string{config.Output}
	}

	// Add service name field
	zapConfig.InitialFields = map[string]interface{}{
		"service": config.ServiceName,
	}

	zapLogger, err := zapConfig.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
	}, nil
}

// NewDevelopmentLogger creates a development logger
func NewDevelopmentLogger(serviceName string) *Logger {
	config := Config{
		Level:       "debug",
		Format:      "console",
		Output:      "stdout",
		ServiceName: serviceName,
		Development: true,
	}

	logger, err := NewLogger(config)
	if err != nil {
		// Fallback to basic logger
		zapLogger := zap.NewExample()
		return &Logger{
			Logger:      zapLogger,
			serviceName: serviceName,
		}
	}

	return logger
}

// NewProductionLogger creates a production logger
func NewProductionLogger(serviceName string) *Logger {
	config := Config{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		ServiceName: serviceName,
		Development: false,
	}

	logger, err := NewLogger(config)
	if err != nil {
		// Fallback to basic logger
		zapLogger := zap.NewExample()
		return &Logger{
			Logger:      zapLogger,
			serviceName: serviceName,
		}
	}

	return logger
}

// WithContext adds context information to logger
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return l
	}

	return &Logger{
		Logger:      l.Logger.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithRequestContext adds request context information to logger
func (l *Logger) WithRequestContext(reqCtx *types.RequestContext) *Logger {
	if reqCtx == nil {
		return l
	}

	fields := []Field{
		zap.String("correlation_id", reqCtx.CorrelationID.String()),
		zap.String("tenant_id", reqCtx.TenantID.String()),
		zap.Time("request_timestamp", reqCtx.Timestamp),
	}

	if reqCtx.UserID != nil {
		fields = append(fields, zap.String("user_id", reqCtx.UserID.String()))
	}

	if reqCtx.WorkflowID != "" {
		fields = append(fields, zap.String("workflow_id", string(reqCtx.WorkflowID)))
	}

	if reqCtx.SessionID != "" {
		fields = append(fields, zap.String("session_id", string(reqCtx.SessionID)))
	}

	if reqCtx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", reqCtx.TraceID))
	}

	return &Logger{
		Logger:      l.Logger.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithComponent adds component information to logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.String("component", component)),
		serviceName: l.serviceName,
	}
}

// WithError adds error information to logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger:      l.Logger.With(zap.Error(err)),
		serviceName: l.serviceName,
	}
}

// WithFields adds multiple fields to logger
func (l *Logger) WithFields(fields ...Field) *Logger {
	return &Logger{
		Logger:      l.Logger.With(fields...),
		serviceName: l.serviceName,
	}
}

// Pipeline logging methods

// LogStageDegraded logs a non-fatal stage failure that the pipeline absorbed
func (l *Logger) LogStageDegraded(stage string, err error, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "stage_degraded"),
		zap.String("stage", stage),
		zap.Error(err),
	}, fields...)

	l.Warn("Pipeline stage degraded", allFields...)
}

// LogStageFailed logs a stage failure that is carried into the result payload
func (l *Logger) LogStageFailed(stage string, err error, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "stage_failed"),
		zap.String("stage", stage),
		zap.Error(err),
	}, fields...)

	l.Error("Pipeline stage failed", allFields...)
}

// LogSagaFallback logs a fail-open fallback to direct execution
func (l *Logger) LogSagaFallback(operation, reason string, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "saga_fallback"),
		zap.String("operation", operation),
		zap.String("reason", reason),
	}, fields...)

	l.Warn("Executing without saga guarantees", allFields...)
}

// LogPipelineComplete logs a completed pipeline invocation
func (l *Logger) LogPipelineComplete(operation string, success bool, duration time.Duration, fields ...Field) {
	allFields := append([]Field{
		zap.String("event_type", "pipeline_complete"),
		zap.String("operation", operation),
		zap.Bool("success", success),
		zap.Duration("duration", duration),
	}, fields...)

	l.Info("Pipeline invocation complete", allFields...)
}

// Helper functions

// extractContextFields extracts logging fields from context
func extractContextFields(ctx context.Context) []Field {
	var fields []Field

	if reqCtx, ok := ctx.Value(types.RequestContextKey).(*types.RequestContext); ok {
		fields = append(fields,
			zap.String("correlation_id", reqCtx.CorrelationID.String()),
			zap.String("tenant_id", reqCtx.TenantID.String()),
		)

		if reqCtx.UserID != nil {
			fields = append(fields, zap.String("user_id", reqCtx.UserID.String()))
		}

		if reqCtx.TraceID != "" {
			fields = append(fields, zap.String("trace_id", reqCtx.TraceID))
		}
	}

	if traceID, ok := ctx.Value("trace_id").(string); ok {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return fields
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(config Config) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Fallback to development logger
		globalLogger = NewDevelopmentLogger("default")
	}
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// Convenience functions using global logger

// Debug logs a debug message
func Debug(msg string, fields ...Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...Field) {
	GetGlobalLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...Field) {
	GetGlobalLogger().Fatal(msg, fields...)
}

// Field creation functions

// String creates a string field
func String(key, value string) Field {
	return zap.String(key, value)
}

// Int creates an int field
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return zap.Float64(key, value)
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Time creates a time field
func Time(key string, value time.Time) Field {
	return zap.Time(key, value)
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return zap.Any(key, value)
}

// Cleanup closes the logger and flushes any buffered log entries
func (l *Logger) Cleanup() {
	if l.Logger != nil {
		l.Logger.Sync()
	}
}

// CleanupGlobal cleans up the global logger
func CleanupGlobal() {
	if globalLogger != nil {
		globalLogger.Cleanup()
	}
}
