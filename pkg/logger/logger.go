package logger

import (
	"os"
	"path/filepath"
	"time"

	"product-annotator/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init 初始化全局 zap 日志：控制台输出 debug 及以上，文件按配置级别输出。
// 启动时归档前一天的日志，并清理超过保留期的归档
func Init(cfg *config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "解析日志级别失败: %s", cfg.Level)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, errors.Wrap(err, "创建日志目录失败")
	}
	now := time.Now()
	if err := rotateStale(cfg.FilePath, now); err != nil {
		return nil, err
	}
	removed, purgeErr := purgeExpired(cfg.FilePath, cfg.Retention(), now)
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "打开日志文件失败: %s", cfg.FilePath)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level),
	)
	l := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(l)

	for _, f := range removed {
		l.Sugar().Infof("已删除过期日志: %s", f)
	}
	if purgeErr != nil {
		l.Sugar().Warnf("清理过期日志失败: %v", purgeErr)
	}
	return l, nil
}
