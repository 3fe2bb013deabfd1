// 開発用上流CMSサーバーのエントリポイント。
// ゲートウェイの転送先として管理者の認証APIを提供する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/internal/devupstream"
)

func main() {
	cfg, err := config.Load[config.DevUpstream]()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := devupstream.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("開発用上流サーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("開発用上流サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("開発用上流サービスの起動に失敗: %v", err)
	}
}
