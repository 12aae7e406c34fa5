package logger

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midirack/sdk/contracts"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements contracts.Logger on top of Uber's zap.
type ZapLogger struct {
	logger  atomic.Pointer[zap.Logger]
	level   zap.AtomicLevel
	encoder zapcore.EncoderConfig
	console bool // human-readable colored output on stderr; files are always JSON

	mu   sync.Mutex // guards dest and file
	dest contracts.LogDestination
	file *os.File
}

var (
	defaultOnce   sync.Once
	defaultLogger contracts.Logger

	stderr zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
)

// Default returns a process-wide production logger, created on first use.
func Default() contracts.Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewZapLogger()
	})
	return defaultLogger
}

// NewZapLogger creates a JSON logger writing to stderr at info level.
func NewZapLogger() contracts.Logger {
	return newZapLogger(zap.NewProductionEncoderConfig(), false)
}

// NewDevelopmentLogger creates a human-readable console logger at debug level.
func NewDevelopmentLogger() contracts.Logger {
	z := newZapLogger(zap.NewDevelopmentEncoderConfig(), true)
	z.level.SetLevel(zapcore.DebugLevel)
	return z
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() contracts.Logger {
	return FromZap(zap.NewNop())
}

// FromZap wraps an existing zap logger. Level gating starts at debug so the
// wrapped core decides what gets written until SetLevel is called.
func FromZap(l *zap.Logger) *ZapLogger {
	z := &ZapLogger{
		level:   zap.NewAtomicLevelAt(zapcore.DebugLevel),
		encoder: zap.NewProductionEncoderConfig(),
		dest:    contracts.ConsoleLog,
	}
	z.logger.Store(l.WithOptions(zap.AddCallerSkip(2)))
	return z
}

func newZapLogger(enc zapcore.EncoderConfig, console bool) *ZapLogger {
	z := &ZapLogger{
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
		encoder: enc,
		console: console,
		dest:    contracts.ConsoleLog,
	}
	z.logger.Store(z.build(stderr, console))
	return z
}

func (z *ZapLogger) build(ws zapcore.WriteSyncer, console bool) *zap.Logger {
	var enc zapcore.Encoder
	if console {
		cfg := z.encoder
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(z.encoder)
	}
	core := zapcore.NewCore(enc, ws, z.level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
	os.Exit(1)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// Enabled reports whether messages at level would be written.
func (z *ZapLogger) Enabled(level contracts.LogLevel) bool {
	return z.level.Enabled(toZapLevel(level))
}

// SetDestination switches output between stderr and an append-only file.
// The previously opened file, if any, is synced and closed.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	var (
		next *zap.Logger
		file *os.File
	)
	switch dest {
	case contracts.ConsoleLog:
		next = z.build(stderr, z.console)
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			return fmt.Errorf("file log destination requires a path")
		}
		f, err := os.OpenFile(filePath[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		file = f
		next = z.build(zapcore.Lock(f), false)
	default:
		return fmt.Errorf("unknown log destination %q", dest)
	}

	prev := z.logger.Swap(next)
	var err error
	if z.file != nil {
		err = multierr.Append(prev.Sync(), z.file.Close())
	}
	z.dest = dest
	z.file = file
	return err
}

// Sync flushes buffered entries. Console output is unbuffered, and syncing a
// terminal fails on several platforms, so only file destinations are synced.
func (z *ZapLogger) Sync() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.dest != contracts.FileLog {
		return nil
	}
	return z.logger.Load().Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}
	if ce := z.logger.Load().Check(level, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if zf, ok := f.(*zapField); ok && zf.set {
			out = append(out, zf.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	field zap.Field
	set   bool
}

func wrap(f zap.Field) contracts.Field {
	return &zapField{field: f, set: true}
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return wrap(zap.Bool(key, val))
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return wrap(zap.Int(key, val))
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return wrap(zap.Float64(key, val))
}

func (f *zapField) String(key string, val string) contracts.Field {
	return wrap(zap.String(key, val))
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return wrap(zap.Time(key, val))
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return wrap(zap.Int64(key, val))
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return wrap(zap.NamedError(key, val))
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return wrap(zap.Uint64(key, val))
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return wrap(zap.Uint8(key, val))
}

func (f *zapField) Any(key string, val any) contracts.Field {
	return wrap(zap.Any(key, val))
}
