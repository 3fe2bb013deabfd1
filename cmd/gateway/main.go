// APIプロキシゲートウェイのエントリポイント。
// 管理画面からの /api/ 以下のリクエストを固定の上流CMSへ転送する。
package main

import (
	"log"

	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/internal/gateway"
)

func main() {
	cfg, err := config.Load[config.Gateway]()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}

	log.Printf("Gatewayサービスを起動します: :%s (upstream=%s)", cfg.Port, cfg.UpstreamURL)
	if err := server.Run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}
