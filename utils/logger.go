package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the structured logger shared by the whole service
	Logger *zap.Logger

	sugar *zap.SugaredLogger
)

// InitLogger initializes the loggers
func InitLogger() error {
	// Create logs directory if it doesn't exist
	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	// One file per level per day, the log analyzer script reads them by name
	timestamp := time.Now().Format("2006-01-02")
	open := func(level string) (zapcore.WriteSyncer, error) {
		f, err := os.OpenFile(
			filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", level, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s log file: %v", level, err)
		}
		return zapcore.AddSync(f), nil
	}

	infoFile, err := open("info")
	if err != nil {
		return err
	}
	errorFile, err := open("error")
	if err != nil {
		return err
	}
	debugFile, err := open("debug")
	if err != nil {
		return err
	}

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	fileEncoder := zapcore.NewConsoleEncoder(fileEncoderCfg)

	only := func(lvl zapcore.Level) zap.LevelEnablerFunc {
		return func(l zapcore.Level) bool { return l == lvl }
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(os.Stdout), zapcore.InfoLevel),
		zapcore.NewCore(fileEncoder, infoFile, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l == zapcore.InfoLevel || l == zapcore.WarnLevel
		})),
		zapcore.NewCore(fileEncoder, errorFile, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel
		})),
		zapcore.NewCore(fileEncoder, debugFile, only(zapcore.DebugLevel)),
	)

	SetLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// SetLogger replaces the shared logger. Tests use it with zap.NewNop or zaptest.
func SetLogger(l *zap.Logger) {
	Logger = l
	sugar = l.Sugar()
}

// SyncLogger flushes buffered log entries
func SyncLogger() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Infof(format, v...)
	}
}

// LogWarn logs a warning
func LogWarn(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Warnf(format, v...)
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Errorf(format, v...)
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Debugf(format, v...)
	}
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip, requestID string, status int, duration time.Duration) {
	if Logger == nil {
		return
	}
	Logger.Info("Request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("ip", ip),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	if Logger != nil {
		Logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
	}
}
