// Package logger 封装zerolog，提供应用内统一的全局日志实例。
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 全局日志实例，Init之前使用zerolog默认配置
var Logger = log.Logger

// Config 日志行为配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 是否记录调用位置
}

// Init 按配置重建全局日志实例
func Init(config Config) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: config.TimeFormat,
			NoColor:    false,
		}
	}

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	builder := zerolog.New(output).Level(level).With().Timestamp()
	if config.ReportCaller {
		builder = builder.Caller()
	}

	// 同时替换应用内全局实例和zerolog库的全局logger
	Logger = builder.Logger()
	log.Logger = Logger
	// 上下文中没有注入logger时，Ctx回退到全局实例而不是禁用的logger
	zerolog.DefaultContextLogger = &Logger
}

// Debug 开始一条debug级日志
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 开始一条info级日志
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 开始一条warn级日志
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 开始一条error级日志
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 开始一条fatal级日志，记录后进程退出
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 取出上下文中携带的logger，不存在时返回禁用的logger
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithContext 把全局logger注入上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}
