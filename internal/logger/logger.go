package logger

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level はログレベルを表す
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel は文字列からログレベルを得る
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Errorf("unknown log level: %s", s)
	}
}

// Logger はzapをバックエンドとするスレッドセーフなロガー
type Logger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

// Default はデフォルトのロガー
var Default = New(os.Stdout, LevelInfo)

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	level := zap.NewAtomicLevelAt(minLevel.zapLevel())

	encCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(out)),
		level,
	)

	return &Logger{
		level: level,
		sugar: zap.New(core).Sugar(),
	}
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Enabled は指定レベルのログが出力されるかを返す
func (l *Logger) Enabled(level Level) bool {
	return l.level.Enabled(level.zapLevel())
}

// Sync はバッファされたログを書き出す
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// log は指定されたレベルでログを出力する
func (l *Logger) log(level Level, nodeID string, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	s := l.sugar
	if nodeID != "" {
		s = s.With("node", nodeID)
	}

	switch level {
	case LevelDebug:
		s.Debugf(format, args...)
	case LevelInfo:
		s.Infof(format, args...)
	case LevelWarn:
		s.Warnf(format, args...)
	default:
		s.Errorf(format, args...)
	}
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(nodeID string, format string, args ...any) {
	l.log(LevelDebug, nodeID, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(nodeID string, format string, args ...any) {
	l.log(LevelInfo, nodeID, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(nodeID string, format string, args ...any) {
	l.log(LevelWarn, nodeID, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(nodeID string, format string, args ...any) {
	l.log(LevelError, nodeID, format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// SetLevel はデフォルトロガーのログレベルを設定する
func SetLevel(level Level) {
	Default.SetLevel(level)
}

// Debug はデバッグログを出力する
func Debug(nodeID string, format string, args ...any) {
	Default.Debug(nodeID, format, args...)
}

// Info は情報ログを出力する
func Info(nodeID string, format string, args ...any) {
	Default.Info(nodeID, format, args...)
}

// Warn は警告ログを出力する
func Warn(nodeID string, format string, args ...any) {
	Default.Warn(nodeID, format, args...)
}

// Error はエラーログを出力する
func Error(nodeID string, format string, args ...any) {
	Default.Error(nodeID, format, args...)
}
