// Package ocr 封装外部文字识别能力：给定图片，返回识别出的文本片段
package ocr

import (
	"context"
	"regexp"
	"strings"
)

// Recognizer 识别图片中的文本片段，按出现顺序返回
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) ([]string, error)
}

// RecognizerFunc 让普通函数实现 Recognizer
type RecognizerFunc func(ctx context.Context, imagePath string) ([]string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	return f(ctx, imagePath)
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizeSpans 折叠片段内部的空白并丢弃空片段
func normalizeSpans(spans []string) []string {
	result := make([]string, 0, len(spans))
	for _, s := range spans {
		s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
		if s == "" {
			continue
		}
		result = append(result, s)
	}
	return result
}
