package registry

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。db/registry/schema.sql と同期すること。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- ユーザーの氏名
    name TEXT NOT NULL,
    -- ユーザーのメールアドレス
    email TEXT NOT NULL UNIQUE,
    -- ユーザーのロール（student / adviser / panelist / coordinator / admin）
    role TEXT NOT NULL,
    -- ユーザーの状態（active / disabled）
    status TEXT NOT NULL DEFAULT 'active',
    -- 登録日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

-- ロールでの検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS thesis_groups (
    -- グループの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 論文の題目
    title TEXT NOT NULL,
    -- 所属プログラム
    program TEXT NOT NULL DEFAULT '',
    -- 学期
    term TEXT NOT NULL DEFAULT '',
    -- 指導教員のユーザーID。未割り当ての場合は空
    adviser_id TEXT NOT NULL DEFAULT '',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS group_students (
    -- 所属グループのID
    group_id TEXT NOT NULL,
    -- 学生メンバーのユーザーID
    user_id TEXT NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES thesis_groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS defense_schedules (
    -- スケジュールの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 対象の論文グループID
    group_id TEXT NOT NULL,
    -- 審査の開催日時
    scheduled_at DATETIME NOT NULL,
    -- 審査の会場
    room TEXT NOT NULL DEFAULT '',
    -- スケジュール作成者のユーザーID
    created_by TEXT NOT NULL DEFAULT '',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    FOREIGN KEY (group_id) REFERENCES thesis_groups(id)
);

-- グループIDでの検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_defense_schedules_group_id ON defense_schedules(group_id);

CREATE TABLE IF NOT EXISTS schedule_panelists (
    -- 対象スケジュールのID
    schedule_id TEXT NOT NULL,
    -- 審査委員のユーザーID
    user_id TEXT NOT NULL,
    PRIMARY KEY (schedule_id, user_id),
    FOREIGN KEY (schedule_id) REFERENCES defense_schedules(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS evaluations (
    -- 評価の一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 対象の審査スケジュールID
    schedule_id TEXT NOT NULL,
    -- 評価者のユーザーID
    evaluator_id TEXT NOT NULL,
    -- 評価の状況（draft / submitted / finalized）
    status TEXT NOT NULL DEFAULT 'draft',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    FOREIGN KEY (schedule_id) REFERENCES defense_schedules(id)
);

-- スケジュールIDでの検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_evaluations_schedule_id ON evaluations(schedule_id);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
