package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

const defaultLogRetentionDays = 10

type LogConfig struct {
	Level         string `json:"level" yaml:"level"`                 // 文件日志级别
	FilePath      string `json:"filePath" yaml:"filePath"`           // 日志文件路径
	RetentionDays int    `json:"retentionDays" yaml:"retentionDays"` // 归档日志保留天数，0 使用默认 10 天
}

func (l *LogConfig) Validate() []error {
	var errs = make([]error, 0)
	if l.Level == "" {
		errs = append(errs, errors.New("logging.level 不能为空"))
	} else if _, err := zapcore.ParseLevel(l.Level); err != nil {
		errs = append(errs, errors.Errorf("logging.level 非法: %s", l.Level))
	}
	if l.FilePath == "" {
		errs = append(errs, errors.New("logging.filePath 不能为空"))
	}
	if l.RetentionDays < 0 {
		errs = append(errs, errors.Errorf("logging.retentionDays 不能为负数: %d", l.RetentionDays))
	}
	return errs
}

// Retention 归档日志的保留时长
func (l *LogConfig) Retention() time.Duration {
	days := l.RetentionDays
	if days <= 0 {
		days = defaultLogRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func NewDefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:         "info",
		FilePath:      "./logs/annotator.log",
		RetentionDays: defaultLogRetentionDays,
	}
}
