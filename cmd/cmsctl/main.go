// 管理コンソールのエントリポイント。
// ゲートウェイ経由でログインし、保存したセッションでCMS管理APIを呼び出す。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/internal/console"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load[config.Console]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		return 1
	}

	ctx := context.Background()
	app, err := console.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初期化に失敗: %v\n", err)
		return 1
	}
	defer app.Close()

	if err := console.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		return 1
	}
	return 0
}
