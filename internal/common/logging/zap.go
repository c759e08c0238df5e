package logging

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	userIDKey
)

// ContextWithRunID returns a context carrying the batch run id
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// ContextWithUserID returns a context carrying the user being enriched
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RunIDFromContext returns the run id stored in ctx, if any
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok
}

// Options configures NewZapLogger. A nil Output means stdout.
type Options struct {
	Level  zapcore.Level
	Output io.Writer
	Name   string
}

// ZapAdapter implements Logger on top of a zap core.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapLogger builds a console-encoded zap logger
func NewZapLogger(opts Options) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(out), opts.Level)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	if opts.Name != "" {
		logger = logger.Named(opts.Name)
	}
	return &ZapAdapter{logger: logger}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &ZapAdapter{logger: zap.NewNop()}
}

func (z *ZapAdapter) Debug(msg string, fields ...Field) { z.logger.Debug(msg, toZap(fields)...) }

func (z *ZapAdapter) Info(msg string, fields ...Field) { z.logger.Info(msg, toZap(fields)...) }

func (z *ZapAdapter) Warn(msg string, fields ...Field) { z.logger.Warn(msg, toZap(fields)...) }

// Error logs msg at error level, attaching err when non-nil
func (z *ZapAdapter) Error(msg string, err error, fields ...Field) {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.logger.Error(msg, zf...)
}

func (z *ZapAdapter) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return &ZapAdapter{logger: z.logger.With(toZap(fields)...)}
}

// WithContext tags the logger with the run and user ids found in ctx
func (z *ZapAdapter) WithContext(ctx context.Context) Logger {
	var zf []zap.Field
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		zf = append(zf, zap.String("run_id", runID))
	}
	if userID, ok := ctx.Value(userIDKey).(int); ok {
		zf = append(zf, zap.Int("user_id", userID))
	}
	if len(zf) == 0 {
		return z
	}
	return &ZapAdapter{logger: z.logger.With(zf...)}
}

// Sync flushes buffered entries
func (z *ZapAdapter) Sync() error {
	return z.logger.Sync()
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
