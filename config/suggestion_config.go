package config

import (
	"time"

	"github.com/pkg/errors"
)

type SuggestionConfig struct {
	MinTextLength int `json:"minTextLength" yaml:"minTextLength"` // 长度不超过该值的识别结果会被丢弃
}

func (s *SuggestionConfig) Validate() []error {
	var errs = make([]error, 0)
	if s.MinTextLength < 0 {
		errs = append(errs, errors.Errorf("suggestions.minTextLength 不能为负数: %d", s.MinTextLength))
	}
	return errs
}

func NewDefaultSuggestionConfig() *SuggestionConfig {
	return &SuggestionConfig{MinTextLength: 2}
}

type OCRConfig struct {
	Languages   []string `json:"languages" yaml:"languages"`     // tesseract 语言包，如 eng
	PageSegMode int      `json:"pageSegMode" yaml:"pageSegMode"` // tesseract PSM
}

func (o *OCRConfig) Validate() []error {
	var errs = make([]error, 0)
	if len(o.Languages) == 0 {
		errs = append(errs, errors.New("ocr.languages 不能为空"))
	}
	if o.PageSegMode < 0 || o.PageSegMode > 13 {
		errs = append(errs, errors.Errorf("ocr.pageSegMode 非法: %d", o.PageSegMode))
	}
	return errs
}

func NewDefaultOCRConfig() *OCRConfig {
	return &OCRConfig{
		Languages:   []string{"eng"},
		PageSegMode: 3,
	}
}

type DatasetConfig struct {
	Dir           string        `json:"dir" yaml:"dir"`                     // parquet 快照输出目录
	FlushInterval time.Duration `json:"flushInterval" yaml:"flushInterval"` // 定时落盘间隔，0 表示只在退出时落盘
}

func (d *DatasetConfig) Validate() []error {
	var errs = make([]error, 0)
	if d.Dir == "" {
		errs = append(errs, errors.New("dataset.dir 不能为空"))
	}
	if d.FlushInterval < 0 {
		errs = append(errs, errors.Errorf("dataset.flushInterval 不能为负数: %s", d.FlushInterval))
	}
	return errs
}

func NewDefaultDatasetConfig() *DatasetConfig {
	return &DatasetConfig{Dir: "./datasets"}
}
