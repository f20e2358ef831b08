// Package logging provides config-driven categorized logging for compartmentalize.
// Every category shares one zap core; a category can be switched off in the
// config. Until Initialize is called every logger is a no-op, so library code
// and tests can log freely.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // CLI startup, config
	CategoryDescription Category = "description" // System description parsing
	CategoryProtection  Category = "protection"  // Protection-ID allocation
	CategoryLayout      Category = "layout"      // Linker script generation
	CategoryNameTable   Category = "nametable"   // Name table generation
	CategoryBuildVars   Category = "buildvars"   // Build template patching
	CategoryToolchain   Category = "toolchain"   // Compiler/archiver/linker runs
	CategoryBuild       Category = "build"       // Pipeline orchestration, artifact writes
	CategoryWatch       Category = "watch"       // File watching
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string
	File       string
	Categories map[string]bool
}

// Logger is a categorized, printf-style front end over a zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	root       = zap.NewNop()
	rootMu     sync.RWMutex
	loggers    = make(map[Category]*Logger)
	loggersMu  sync.Mutex
	categories map[string]bool
	closeSink  func()
)

// Initialize builds the shared zap core from cfg. It may be called again to
// reconfigure; previously returned loggers keep their old core.
func Initialize(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	sink := zapcore.Lock(os.Stderr)
	var closer func()
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.Lock(f)
		closer = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level))
	install(logger, cfg.Categories, closer)

	Boot("logging initialized: level=%s format=%s", level, encoderName(cfg.Format))
	return nil
}

// UseLogger installs an existing zap logger; tests use zaptest/observer cores.
func UseLogger(l *zap.Logger) {
	install(l, nil, nil)
}

func install(l *zap.Logger, cats map[string]bool, closer func()) {
	rootMu.Lock()
	if closeSink != nil {
		closeSink()
	}
	root = l
	categories = cats
	closeSink = closer
	rootMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

// Zap returns the shared zap logger for structured fields.
func Zap() *zap.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Sync flushes buffered entries and closes the log file, if any.
func Sync() {
	rootMu.Lock()
	defer rootMu.Unlock()
	_ = root.Sync()
	if closeSink != nil {
		closeSink()
		closeSink = nil
	}
}

func parseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func encoderName(format string) string {
	if format == "" {
		return "console"
	}
	return format
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	rootMu.RLock()
	defer rootMu.RUnlock()

	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{
		category: category,
		sugar:    Zap().Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Description logs to the description category
func Description(format string, args ...interface{}) {
	Get(CategoryDescription).Info(format, args...)
}

// DescriptionDebug logs debug to the description category
func DescriptionDebug(format string, args ...interface{}) {
	Get(CategoryDescription).Debug(format, args...)
}

// ProtectionDebug logs debug to the protection category
func ProtectionDebug(format string, args ...interface{}) {
	Get(CategoryProtection).Debug(format, args...)
}

// Layout logs to the layout category
func Layout(format string, args ...interface{}) {
	Get(CategoryLayout).Info(format, args...)
}

// LayoutDebug logs debug to the layout category
func LayoutDebug(format string, args ...interface{}) {
	Get(CategoryLayout).Debug(format, args...)
}

// NameTableDebug logs debug to the nametable category
func NameTableDebug(format string, args ...interface{}) {
	Get(CategoryNameTable).Debug(format, args...)
}

// BuildVarsDebug logs debug to the buildvars category
func BuildVarsDebug(format string, args ...interface{}) {
	Get(CategoryBuildVars).Debug(format, args...)
}

// Toolchain logs to the toolchain category
func Toolchain(format string, args ...interface{}) {
	Get(CategoryToolchain).Info(format, args...)
}

// ToolchainDebug logs debug to the toolchain category
func ToolchainDebug(format string, args ...interface{}) {
	Get(CategoryToolchain).Debug(format, args...)
}

// ToolchainError logs error to the toolchain category
func ToolchainError(format string, args ...interface{}) {
	Get(CategoryToolchain).Error(format, args...)
}

// Build logs to the build category
func Build(format string, args ...interface{}) {
	Get(CategoryBuild).Info(format, args...)
}

// BuildDebug logs debug to the build category
func BuildDebug(format string, args ...interface{}) {
	Get(CategoryBuild).Debug(format, args...)
}

// BuildError logs error to the build category
func BuildError(format string, args ...interface{}) {
	Get(CategoryBuild).Error(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchWarn logs warning to the watch category
func WatchWarn(format string, args ...interface{}) {
	Get(CategoryWatch).Warn(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer measures one operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
