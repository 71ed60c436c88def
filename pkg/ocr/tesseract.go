package ocr

import (
	"context"
	"os"

	"product-annotator/config"

	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TesseractRecognizer 基于 gosseract 的识别器，按文本行返回识别结果。
// gosseract.Client 不是并发安全的，每次识别创建独立的客户端
type TesseractRecognizer struct {
	languages     []string
	pageSegMode   gosseract.PageSegMode
	clientFactory func() *gosseract.Client
}

func NewTesseractRecognizer(cfg *config.OCRConfig) *TesseractRecognizer {
	return &TesseractRecognizer{
		languages:     cfg.Languages,
		pageSegMode:   gosseract.PageSegMode(cfg.PageSegMode),
		clientFactory: gosseract.NewClient,
	}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(imagePath); err != nil {
		return nil, errors.Wrapf(err, "读取图片失败: %s", imagePath)
	}
	zap.S().Infof("从图片中提取文本候选: %s", imagePath)

	client := r.clientFactory()
	defer client.Close()

	if len(r.languages) > 0 {
		if err := client.SetLanguage(r.languages...); err != nil {
			return nil, errors.Wrap(err, "设置 OCR 语言失败")
		}
	}
	if err := client.SetPageSegMode(r.pageSegMode); err != nil {
		return nil, errors.Wrap(err, "设置 PSM 失败")
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, errors.Wrapf(err, "加载图片失败: %s", imagePath)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, errors.Wrap(err, "OCR 识别失败")
	}
	spans := make([]string, 0, len(boxes))
	for _, b := range boxes {
		spans = append(spans, b.Word)
	}
	return normalizeSpans(spans), ctx.Err()
}
