package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var onlyOneSignalHandler = make(chan struct{})

// SetupSignalHandler 注册 SIGINT/SIGTERM；收到第一个信号时取消返回的 context，
// 收到第二个信号时直接退出进程。只能调用一次
func SetupSignalHandler() context.Context {
	close(onlyOneSignalHandler) // 重复调用时 panic

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-c
		zap.S().Infof("收到信号 %v，准备退出", sig)
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
