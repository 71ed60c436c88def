package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"product-annotator/config"
	"product-annotator/pkg/db"
	"product-annotator/pkg/logger"
	"product-annotator/pkg/ocr"
	"product-annotator/pkg/server"
	"product-annotator/pkg/service"
	"product-annotator/pkg/signals"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	var configFilePath string

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "启动标注服务",
		SilenceUsage: true,
		Long:         "上传商品图片，OCR 给出候选文本，拼接出标签后写入数据集；退出时将数据集保存为 parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.TryLoadFromDisk(configFilePath)
			if err != nil {
				return fmt.Errorf("读取本地配置文件错误:%w", err)
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				return fmt.Errorf("本地配置文件验证错误:%w", errors.Join(errs...))
			}

			l, err := logger.Init(cfg.LogConfig)
			if err != nil {
				return err
			}
			defer l.Sync()

			ctx := signals.SetupSignalHandler()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFilePath, "config", "c", "./etc/config.yaml", "配置文件路径")
	return cmd
}

func runServe(ctx context.Context, cfg *config.GlobalConfig) error {
	a, err := newAnnotator(ctx, cfg, ocr.NewTesseractRecognizer(cfg.OCRConfig))
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

// annotator 持有一次 serve 运行所需的全部组件
type annotator struct {
	cfg        *config.GlobalConfig
	duckDB     *sql.DB
	dataset    *service.DatasetAccumulator
	controller *service.SessionController
	server     *server.Server
}

func newAnnotator(ctx context.Context, cfg *config.GlobalConfig, recognizer ocr.Recognizer) (*annotator, error) {
	duckDB, err := db.OpenDuckDB(ctx, cfg.DuckDBConfig)
	if err != nil {
		return nil, err
	}

	dataset, err := service.NewDatasetAccumulator(ctx, duckDB, cfg.DatasetConfig.Dir)
	if err != nil {
		duckDB.Close()
		return nil, err
	}
	if err := os.MkdirAll(cfg.AppConfig.GetUploadDir(), 0755); err != nil {
		duckDB.Close()
		return nil, fmt.Errorf("创建上传目录失败:%w", err)
	}

	controller := service.NewSessionController(recognizer, dataset, cfg.SuggestionConfig.MinTextLength)
	return &annotator{
		cfg:        cfg,
		duckDB:     duckDB,
		dataset:    dataset,
		controller: controller,
		server:     server.NewServer(cfg.AppConfig, controller),
	}, nil
}

// Run 阻塞直到 ctx 取消或 HTTP 服务退出，随后等待定时落盘结束，再落盘一次
func (a *annotator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if interval := a.cfg.DatasetConfig.FlushInterval; interval > 0 {
		zap.S().Infof("每 %s 自动保存数据集", interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.dataset.RunPeriodicFlush(runCtx, interval)
		}()
	}

	serveErr := a.server.Run(runCtx)
	cancel()
	wg.Wait()

	// ctx 已取消，使用新的 context 完成最后一次落盘
	if _, err := a.controller.Shutdown(context.Background()); err != nil {
		zap.S().Errorf("退出前保存数据集失败:%s", err.Error())
	}
	zap.S().Info("退出应用")
	return serveErr
}

func (a *annotator) Close() error {
	return a.duckDB.Close()
}
