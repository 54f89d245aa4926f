package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	notificationdb "github.com/LemuelVelez/thesis-grader/internal/notification/db"
	"github.com/LemuelVelez/thesis-grader/pkg/payload"
)

// defaultFanOutLimit はPush配信の同時実行数の上限。
const defaultFanOutLimit = 8

// defaultAttemptTimeout は1回のPush送信に許す時間。
// タイムアウトした試行はfailedとして数え、リトライしない。
const defaultAttemptTimeout = 5 * time.Second

// DispatchResult はPush配信の集計結果。
type DispatchResult struct {
	// Enabled はPush配信が設定済みかどうか。
	Enabled bool `json:"enabled"`
	// TotalSubscriptions は配信対象となった購読の総数。
	TotalSubscriptions int `json:"total_subscriptions"`
	// Sent は送信に成功した購読の数。
	Sent int `json:"sent"`
	// Failed は送信に失敗した購読の数。
	Failed int `json:"failed"`
	// Removed は失効が判明し削除された購読の数。
	Removed int `json:"removed"`
	// Reason は配信しなかった場合の理由。
	Reason string `json:"reason,omitempty"`
}

// DispatchOutcome は1回の配信呼び出しの結果。
type DispatchOutcome struct {
	// NotificationIDs は作成された通知レコードのID一覧。受信者と同順。
	NotificationIDs []string
	// RecipientIDs は受信者のユーザーID一覧。
	RecipientIDs []string
	// Push はPush配信の集計結果。
	Push DispatchResult
}

// Dispatcher は通知レコードの一括永続化とPushのファンアウトを行う。
//
// フェーズ1では受信者ごとに1レコードを単一トランザクションで挿入する。
// フェーズ2はベストエフォートであり、その結果がフェーズ1のレコードを
// 巻き戻すことはない。
type Dispatcher struct {
	// db はトランザクション開始に使うSQLite接続。
	db *sql.DB
	// queries は通知テーブルへのクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// provider はPush配信の実装。nilの場合Pushは無効。
	provider PushProvider
	// fanOutLimit はPush配信の同時実行数の上限。
	fanOutLimit int
	// attemptTimeout は1回のPush送信のタイムアウト。
	attemptTimeout time.Duration
}

// NewDispatcher は新しいDispatcherを生成する。providerはnilでもよい。
func NewDispatcher(sqlDB *sql.DB, queries *notificationdb.Queries, provider PushProvider) *Dispatcher {
	return &Dispatcher{
		db:             sqlDB,
		queries:        queries,
		provider:       provider,
		fanOutLimit:    defaultFanOutLimit,
		attemptTimeout: defaultAttemptTimeout,
	}
}

// Dispatch は受信者集合へ通知を配信する。
// フェーズ1（永続化）が失敗した場合はレコードを一切残さずエラーを返す。
// フェーズ2（Push）のエラーは購読単位で回復し、集計結果として返す。
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []string, typ payload.Type, content Content, data map[string]any) (DispatchOutcome, error) {
	notificationIDs, err := d.persist(ctx, recipients, typ, content, data)
	if err != nil {
		return DispatchOutcome{}, err
	}

	outcome := DispatchOutcome{
		NotificationIDs: notificationIDs,
		RecipientIDs:    recipients,
	}

	// フェーズ1のコミット後は呼び出し側のキャンセルに影響されず、
	// 失効購読の削除まで完走させる
	outcome.Push = d.fanOut(context.WithoutCancel(ctx), recipients, notificationIDs, typ, content)
	return outcome, nil
}

// persist は受信者ごとに1つの通知レコードを単一トランザクションで挿入する。
// どれか1件でも失敗した場合は全件ロールバックする。
func (d *Dispatcher) persist(ctx context.Context, recipients []string, typ payload.Type, content Content, data map[string]any) ([]string, error) {
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("コンテキストスナップショットのシリアライズに失敗: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := d.queries.WithTx(tx)
	notificationIDs := make([]string, 0, len(recipients))
	for _, recipientID := range recipients {
		notificationID := uuid.New().String()
		if err := qtx.CreateNotification(ctx, notificationdb.CreateNotificationParams{
			ID:     notificationID,
			UserID: recipientID,
			Type:   string(typ),
			Title:  content.Title,
			Body:   content.FormalMessage,
			Data:   string(dataJSON),
		}); err != nil {
			return nil, fmt.Errorf("通知レコードの作成に失敗: %w", err)
		}
		notificationIDs = append(notificationIDs, notificationID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return notificationIDs, nil
}

// pushAttempt は1回のPush送信の対象（受信者・購読・通知ID）。
type pushAttempt struct {
	// sub は送信先の購読レコード。
	sub notificationdb.PushSubscription
	// message はシリアライズ済みのペイロード。
	message []byte
}

// fanOut は受信者全員の全購読へPushをベストエフォートで配信し、結果を集計する。
// 購読単位のエラーは回復し、呼び出し全体を失敗させない。
func (d *Dispatcher) fanOut(ctx context.Context, recipients, notificationIDs []string, typ payload.Type, content Content) DispatchResult {
	if d.provider == nil {
		return DispatchResult{Enabled: false, Reason: "push not configured"}
	}

	attempts := d.collectAttempts(ctx, recipients, notificationIDs, typ, content)
	result := DispatchResult{Enabled: true, TotalSubscriptions: len(attempts)}
	if len(attempts) == 0 {
		return result
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.fanOutLimit)

	for _, attempt := range attempts {
		g.Go(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
			defer cancel()

			err := d.provider.Send(attemptCtx, Subscription{
				Endpoint: attempt.sub.Endpoint,
				P256dh:   attempt.sub.P256dh,
				Auth:     attempt.sub.Auth,
			}, attempt.message)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Sent++
			case errors.Is(err, ErrSubscriptionGone):
				result.Removed++
				if err := d.queries.DeletePushSubscription(ctx, notificationdb.DeletePushSubscriptionParams{
					UserID:   attempt.sub.UserID,
					Endpoint: attempt.sub.Endpoint,
				}); err != nil {
					log.Printf("失効購読の削除に失敗: user=%s, %v", attempt.sub.UserID, err)
				}
			default:
				result.Failed++
				log.Printf("Push送信に失敗: user=%s, %v", attempt.sub.UserID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// collectAttempts は受信者ごとの購読一覧を取得し、送信対象の一覧を組み立てる。
// ペイロードには受信者ごとの通知レコードIDを含める。
func (d *Dispatcher) collectAttempts(ctx context.Context, recipients, notificationIDs []string, typ payload.Type, content Content) []pushAttempt {
	var attempts []pushAttempt
	for i, recipientID := range recipients {
		subs, err := d.queries.ListPushSubscriptionsByUser(ctx, recipientID)
		if err != nil {
			log.Printf("購読一覧の取得に失敗: user=%s, %v", recipientID, err)
			continue
		}
		if len(subs) == 0 {
			continue
		}

		message, err := payload.Marshal(payload.Push{
			Title: content.Title,
			Body:  content.Summary,
			Tag:   string(typ),
			Data: payload.PushData{
				NotificationID: notificationIDs[i],
				Type:           typ,
				URL:            "/notifications",
			},
		})
		if err != nil {
			log.Printf("Pushペイロードの構築に失敗: user=%s, %v", recipientID, err)
			continue
		}

		for _, sub := range subs {
			attempts = append(attempts, pushAttempt{sub: sub, message: message})
		}
	}
	return attempts
}
