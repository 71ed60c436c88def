package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type IConfig interface {
	Validate() []error
}

type GlobalConfig struct {
	AppConfig        *AppConfig        `json:"app" yaml:"app"`
	LogConfig        *LogConfig        `json:"logging" yaml:"logging"`
	SuggestionConfig *SuggestionConfig `json:"suggestions" yaml:"suggestions"`
	OCRConfig        *OCRConfig        `json:"ocr" yaml:"ocr"`
	DatasetConfig    *DatasetConfig    `json:"dataset" yaml:"dataset"`
	DuckDBConfig     *DuckDBConfig     `json:"duckdb" yaml:"duckdb"`
}

// Validate 校验全部配置；服务地址与日志配置缺失时不允许启动
func (g *GlobalConfig) Validate() []error {
	var errs = make([]error, 0)
	if g.AppConfig == nil {
		errs = append(errs, errors.New("app 配置未设置"))
	} else {
		errs = append(errs, g.AppConfig.Validate()...)
	}
	if g.LogConfig == nil {
		errs = append(errs, errors.New("logging 配置未设置"))
	} else {
		errs = append(errs, g.LogConfig.Validate()...)
	}
	if g.SuggestionConfig != nil {
		errs = append(errs, g.SuggestionConfig.Validate()...)
	}
	if g.OCRConfig != nil {
		errs = append(errs, g.OCRConfig.Validate()...)
	}
	if g.DatasetConfig != nil {
		errs = append(errs, g.DatasetConfig.Validate()...)
	}
	if g.DuckDBConfig != nil {
		errs = append(errs, g.DuckDBConfig.Validate()...)
	}
	return errs
}

// NewDefaultGlobalConfig 返回默认配置；app 与 logging 必须由配置文件提供
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		SuggestionConfig: NewDefaultSuggestionConfig(),
		OCRConfig:        NewDefaultOCRConfig(),
		DatasetConfig:    NewDefaultDatasetConfig(),
		DuckDBConfig:     NewDefaultDuckDBConfig(),
	}
}

// TryLoadFromDisk 读取配置文件；环境变量（如 APP_PORT、LOGGING_LEVEL）覆盖文件中已有的同名配置
func TryLoadFromDisk(configFilePath string) (*GlobalConfig, error) {
	if _, err := os.Stat(configFilePath); err != nil {
		return nil, errors.Wrapf(err, "配置文件不可读: %s", configFilePath)
	}
	v := newViper(configFilePath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "解析配置文件错误: %s", configFilePath)
	}
	cfg := NewDefaultGlobalConfig()
	if err := v.Unmarshal(cfg, decodeByExt(configFilePath)); err != nil {
		return nil, errors.Wrap(err, "反序列化配置失败")
	}
	return cfg, nil
}

func newViper(configFilePath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configFilePath)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// decodeByExt 按扩展名选择结构体标签：.yaml/.yml 读 yaml 标签，.json 读 json 标签
func decodeByExt(configFilePath string) viper.DecoderConfigOption {
	tag := strings.TrimPrefix(filepath.Ext(configFilePath), ".")
	if tag == "yml" {
		tag = "yaml"
	}
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = tag
	}
}
