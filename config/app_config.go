package config

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// AppConfig 标注服务的监听地址与上传目录
type AppConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	UploadDir string `json:"uploadDir" yaml:"uploadDir"` // 上传图片保存目录
}

func (a *AppConfig) Validate() []error {
	var errs = make([]error, 0)
	if a.Host == "" {
		errs = append(errs, errors.New("app.host 不能为空"))
	}
	if a.Port <= 0 || a.Port > 65535 {
		errs = append(errs, errors.Errorf("app.port 非法: %d", a.Port))
	}
	return errs
}

func NewDefaultAppConfig() *AppConfig {
	return &AppConfig{
		Host:      "0.0.0.0",
		Port:      8000,
		UploadDir: "./uploads",
	}
}

// GetUploadDir 未配置时回落到 ./uploads
func (a *AppConfig) GetUploadDir() string {
	if a.UploadDir == "" {
		return "./uploads"
	}
	return a.UploadDir
}

func (a *AppConfig) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
