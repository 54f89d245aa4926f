package notification

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	notificationdb "github.com/LemuelVelez/thesis-grader/internal/notification/db"
	"github.com/LemuelVelez/thesis-grader/pkg/payload"
)

// setupDispatchDB はテスト用のインメモリSQLiteとクエリオブジェクトを構築する。
func setupDispatchDB(t *testing.T) (*sql.DB, *notificationdb.Queries) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}
	return sqlDB, notificationdb.New(sqlDB)
}

// fakeProvider はPushProviderのテスト用実装。
// エンドポイントごとに失効・失敗の挙動を切り替えられる。
type fakeProvider struct {
	// mu は送信記録の保護用ミューテックス。
	mu sync.Mutex
	// sent は送信に成功したエンドポイントの記録。
	sent []string
	// gone は失効として扱うエンドポイントの集合。
	gone map[string]bool
	// fail は一時エラーとして扱うエンドポイントの集合。
	fail map[string]bool
}

// Send はエンドポイントの設定に応じた結果を返す。
func (p *fakeProvider) Send(_ context.Context, sub Subscription, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gone[sub.Endpoint] {
		return ErrSubscriptionGone
	}
	if p.fail[sub.Endpoint] {
		return errors.New("プッシュサービスが一時エラーを返した")
	}
	p.sent = append(p.sent, sub.Endpoint)
	return nil
}

// addSubscription はテスト用にPush購読をDBへ直接登録するヘルパー関数。
func addSubscription(t *testing.T, queries *notificationdb.Queries, userID, endpoint string) {
	t.Helper()
	err := queries.UpsertPushSubscription(t.Context(), notificationdb.UpsertPushSubscriptionParams{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   "test-p256dh",
		Auth:     "test-auth",
	})
	if err != nil {
		t.Fatalf("テスト用購読の登録に失敗: %v", err)
	}
}

// testContent はディスパッチテスト用の通知内容。
var testContent = Content{
	Title:         "審査スケジュール変更",
	Summary:       "論文審査のスケジュールが変更されました。最新の内容をご確認ください。",
	FormalSubject: "論文審査スケジュール変更のお知らせ",
	FormalMessage: "論文審査のスケジュールが変更されました。最新の内容をご確認ください。\n\n審査日時: 2026-03-01 10:00",
}

// TestDispatcherPersist は通知レコードの一括永続化を検証する。
func TestDispatcherPersist(t *testing.T) {
	t.Parallel()

	t.Run("受信者ごとに1件の未読レコードが作成されること", func(t *testing.T) {
		t.Parallel()

		sqlDB, queries := setupDispatchDB(t)
		dispatcher := NewDispatcher(sqlDB, queries, nil)

		outcome, err := dispatcher.Dispatch(
			t.Context(),
			[]string{"student-1", "student-2"},
			payload.TypeDefenseScheduleUpdated,
			testContent,
			map[string]any{"template": "defense_schedule_updated"},
		)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}

		if len(outcome.NotificationIDs) != 2 {
			t.Fatalf("作成された通知ID数 = %d, want 2", len(outcome.NotificationIDs))
		}
		if outcome.Push.Enabled {
			t.Error("プロバイダ未設定の場合Push.Enabledはfalseであるべき")
		}

		for i, userID := range []string{"student-1", "student-2"} {
			n, err := queries.GetNotification(t.Context(), outcome.NotificationIDs[i])
			if err != nil {
				t.Fatalf("通知の取得に失敗: %v", err)
			}
			if n.UserID != userID {
				t.Errorf("UserID = %q, want %q", n.UserID, userID)
			}
			if n.Type != "defense_schedule_updated" {
				t.Errorf("Type = %q, want defense_schedule_updated", n.Type)
			}
			if n.Body != testContent.FormalMessage {
				t.Errorf("Body = %q, want %q", n.Body, testContent.FormalMessage)
			}
			if n.ReadAt.Valid {
				t.Error("作成直後の通知は未読であるべき")
			}
		}
	})

	t.Run("1件でも挿入に失敗した場合は全件ロールバックされること", func(t *testing.T) {
		t.Parallel()

		sqlDB, queries := setupDispatchDB(t)

		// 特定ユーザーへの挿入を失敗させるトリガーを仕込む
		_, err := sqlDB.Exec(`
			CREATE TRIGGER reject_poison_user BEFORE INSERT ON notifications
			WHEN NEW.user_id = 'poison-user'
			BEGIN
				SELECT RAISE(ABORT, 'poison user rejected');
			END`)
		if err != nil {
			t.Fatalf("テスト用トリガーの作成に失敗: %v", err)
		}

		dispatcher := NewDispatcher(sqlDB, queries, nil)
		_, err = dispatcher.Dispatch(
			t.Context(),
			[]string{"student-1", "poison-user", "student-2"},
			payload.TypeGeneralAnnouncement,
			testContent,
			nil,
		)
		if err == nil {
			t.Fatal("挿入失敗時はエラーが返るべき")
		}

		var count int
		if err := sqlDB.QueryRow("SELECT COUNT(*) FROM notifications").Scan(&count); err != nil {
			t.Fatalf("件数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("通知レコード数 = %d, want 0（全件ロールバック）", count)
		}
	})
}

// TestDispatcherFanOut はPushファンアウトの集計と購読の整理を検証する。
func TestDispatcherFanOut(t *testing.T) {
	t.Parallel()

	t.Run("成功と失効が混在する場合に正しく集計されること", func(t *testing.T) {
		t.Parallel()

		sqlDB, queries := setupDispatchDB(t)
		addSubscription(t, queries, "student-1", "https://push.example.com/ok")
		addSubscription(t, queries, "student-1", "https://push.example.com/gone")

		provider := &fakeProvider{gone: map[string]bool{"https://push.example.com/gone": true}}
		dispatcher := NewDispatcher(sqlDB, queries, provider)

		outcome, err := dispatcher.Dispatch(
			t.Context(),
			[]string{"student-1"},
			payload.TypeDefenseScheduleUpdated,
			testContent,
			nil,
		)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}

		result := outcome.Push
		if !result.Enabled {
			t.Error("Push.Enabledはtrueであるべき")
		}
		if result.TotalSubscriptions != 2 {
			t.Errorf("TotalSubscriptions = %d, want 2", result.TotalSubscriptions)
		}
		if result.Sent != 1 {
			t.Errorf("Sent = %d, want 1", result.Sent)
		}
		if result.Removed != 1 {
			t.Errorf("Removed = %d, want 1", result.Removed)
		}
		if result.Failed != 0 {
			t.Errorf("Failed = %d, want 0", result.Failed)
		}

		// 失効した購読はストアから削除されること
		subs, err := queries.ListPushSubscriptionsByUser(t.Context(), "student-1")
		if err != nil {
			t.Fatalf("購読一覧の取得に失敗: %v", err)
		}
		if len(subs) != 1 {
			t.Fatalf("残存する購読数 = %d, want 1", len(subs))
		}
		if subs[0].Endpoint != "https://push.example.com/ok" {
			t.Errorf("残存する購読 = %q, want https://push.example.com/ok", subs[0].Endpoint)
		}

		// Pushの結果に関わらず通知レコードは未読のまま残ること
		n, err := queries.GetNotification(t.Context(), outcome.NotificationIDs[0])
		if err != nil {
			t.Fatalf("通知の取得に失敗: %v", err)
		}
		if n.ReadAt.Valid {
			t.Error("Pushの配信結果は既読状態に影響しないべき")
		}
	})

	t.Run("一時エラーはfailedとして数え購読を残すこと", func(t *testing.T) {
		t.Parallel()

		sqlDB, queries := setupDispatchDB(t)
		addSubscription(t, queries, "student-1", "https://push.example.com/flaky")

		provider := &fakeProvider{fail: map[string]bool{"https://push.example.com/flaky": true}}
		dispatcher := NewDispatcher(sqlDB, queries, provider)

		outcome, err := dispatcher.Dispatch(
			t.Context(),
			[]string{"student-1"},
			payload.TypeGeneralAnnouncement,
			testContent,
			nil,
		)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}

		if outcome.Push.Failed != 1 {
			t.Errorf("Failed = %d, want 1", outcome.Push.Failed)
		}
		if outcome.Push.Removed != 0 {
			t.Errorf("Removed = %d, want 0", outcome.Push.Removed)
		}

		subs, err := queries.ListPushSubscriptionsByUser(t.Context(), "student-1")
		if err != nil {
			t.Fatalf("購読一覧の取得に失敗: %v", err)
		}
		if len(subs) != 1 {
			t.Errorf("一時エラーの購読は削除されないべき: 残存数 = %d", len(subs))
		}
	})

	t.Run("購読を持たない受信者がいてもレコードは作成されること", func(t *testing.T) {
		t.Parallel()

		sqlDB, queries := setupDispatchDB(t)
		addSubscription(t, queries, "student-1", "https://push.example.com/only")

		provider := &fakeProvider{}
		dispatcher := NewDispatcher(sqlDB, queries, provider)

		outcome, err := dispatcher.Dispatch(
			t.Context(),
			[]string{"student-1", "student-2"},
			payload.TypeGeneralAnnouncement,
			testContent,
			nil,
		)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}

		if len(outcome.NotificationIDs) != 2 {
			t.Errorf("作成された通知ID数 = %d, want 2", len(outcome.NotificationIDs))
		}
		if outcome.Push.TotalSubscriptions != 1 {
			t.Errorf("TotalSubscriptions = %d, want 1", outcome.Push.TotalSubscriptions)
		}
		if outcome.Push.Sent != 1 {
			t.Errorf("Sent = %d, want 1", outcome.Push.Sent)
		}
	})
}
