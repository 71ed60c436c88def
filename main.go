package main

import (
	"os"

	"product-annotator/cmd"

	"go.uber.org/zap"
)

func main() {
	l, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(l)

	if err := cmd.NewRootCommand().Execute(); err != nil {
		zap.S().Errorf("%v", err)
		os.Exit(1)
	}
}
