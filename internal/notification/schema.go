package notification

import (
	"database/sql"
	"embed"

	"github.com/LemuelVelez/thesis-grader/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// initSchema はマイグレーションを実行して通知サービスのスキーマを適用する。
func initSchema(db *sql.DB) error {
	return migration.Run(db, migrationsFS, "migrations")
}
