package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// MainLogFile 主日志,记录所有级别
	MainLogFile = "hncrawler.log"
	// ErrorLogFile 错误日志,只记录error及以上
	ErrorLogFile = "hncrawler_error.log"
)

// Logger 全局日志器,InitLogger 之前只输出到标准错误
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().
	Timestamp().
	Logger()

// LogConfig 日志配置,由 logging 配置段转换而来
type LogConfig struct {
	Level      string
	LogDir     string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
	Console    io.Writer // 为nil时使用os.Stdout
}

// rotating 日志目录下按大小轮转的文件
func (c LogConfig) rotating(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.LogDir, name),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// parseLevel 无法识别或为空时使用info
func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// InitLogger 初始化全局日志器
// 同时写入控制台、主日志和错误日志,zerolog/log 的全局日志器也指向它
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败 [%s]: %w", config.LogDir, err)
	}

	level := parseLevel(config.Level)
	zerolog.SetGlobalLevel(level)

	console := config.Console
	if console == nil {
		console = os.Stdout
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
		config.rotating(MainLogFile),
		&FilteredWriter{Writer: config.rotating(ErrorLogFile), MinLevel: zerolog.ErrorLevel},
	)).With().Timestamp().Logger()
	log.Logger = Logger

	Logger.Info().Str("level", level.String()).Str("log_dir", config.LogDir).Msg("日志系统初始化完成")
	return nil
}

// FilteredWriter 只写入MinLevel及以上的日志
// 经由MultiLevelWriter调用时总会走WriteLevel,Write收到的是无级别输出,直接丢弃
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

func (w *FilteredWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel 实现zerolog.LevelWriter
func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.MinLevel || level >= zerolog.NoLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// WithPass 携带轮次ID的子日志器,一轮扫描及其后台任务共用
func WithPass(passID string) zerolog.Logger {
	return Logger.With().Str("pass_id", passID).Logger()
}

// Info 信息日志
func Info(msg string) { Logger.Info().Msg(msg) }

// Infof 格式化信息日志
func Infof(format string, args ...any) { Logger.Info().Msgf(format, args...) }

// Warnf 格式化警告日志
func Warnf(format string, args ...any) { Logger.Warn().Msgf(format, args...) }

// Errorf 格式化错误日志
func Errorf(format string, args ...any) { Logger.Error().Msgf(format, args...) }

// Debugf 格式化调试日志
func Debugf(format string, args ...any) { Logger.Debug().Msgf(format, args...) }
