// レジストリサービスのエントリポイント。
// ユーザー、論文グループ、審査スケジュール、審査評価のマスタデータを管理する。
package main

import (
	"log"
	"os"

	"github.com/LemuelVelez/thesis-grader/internal/registry"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8087"
	}

	server, err := registry.NewServer(port)
	if err != nil {
		log.Fatalf("レジストリサーバーの初期化に失敗: %v", err)
	}

	log.Printf("レジストリサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("レジストリサービスの起動に失敗: %v", err)
	}
}
