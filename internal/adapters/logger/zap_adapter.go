package logger

import (
	"context"
	"os"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/contextkeys"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements the domain.Logger port using Zap.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter builds the application logger from config. Info and
// below go to stdout, errors to stderr, everything JSON-encoded.
func NewZapAdapter(cfgProvider config.Provider, serviceName string) (domain.Logger, error) {
	appConfig := cfgProvider.Get()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(appConfig.Log.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stderr), errorLevel),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zapLogger = zapLogger.With(zap.String("service", serviceName))

	return &ZapAdapter{logger: zapLogger}, nil
}

// extractFieldsFromContext promotes request/task-scoped IDs from the
// context into structured fields, then appends the caller's pairs.
func (za *ZapAdapter) extractFieldsFromContext(ctx context.Context, additionalFields []any) []zap.Field {
	fields := make([]zap.Field, 0, len(additionalFields)/2+3)

	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String(contextkeys.RequestIDKey.String(), requestID))
	}
	if taskID, ok := ctx.Value(contextkeys.TaskIDKey).(string); ok && taskID != "" {
		fields = append(fields, zap.String(contextkeys.TaskIDKey.String(), taskID))
	}
	if cacheKey, ok := ctx.Value(contextkeys.CacheKeyKey).(string); ok && cacheKey != "" {
		fields = append(fields, zap.String(contextkeys.CacheKeyKey.String(), cacheKey))
	}

	for i := 0; i+1 < len(additionalFields); i += 2 {
		if key, ok := additionalFields[i].(string); ok {
			fields = append(fields, zap.Any(key, additionalFields[i+1]))
		}
	}

	return fields
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	za.logger.Debug(msg, za.extractFieldsFromContext(ctx, args)...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.InfoLevel) {
		return
	}
	za.logger.Info(msg, za.extractFieldsFromContext(ctx, args)...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.WarnLevel) {
		return
	}
	za.logger.Warn(msg, za.extractFieldsFromContext(ctx, args)...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	za.logger.Error(msg, za.extractFieldsFromContext(ctx, args)...)
}

func (za *ZapAdapter) Fatal(ctx context.Context, msg string, args ...any) {
	za.logger.Fatal(msg, za.extractFieldsFromContext(ctx, args)...)
}

func (za *ZapAdapter) With(args ...any) domain.Logger {
	zapFields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			zapFields = append(zapFields, zap.Any(key, args[i+1]))
		}
	}
	return &ZapAdapter{logger: za.logger.With(zapFields...)}
}
