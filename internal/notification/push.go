package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone は購読エンドポイントが恒久的に失効したことを表す。
// Delivery Dispatcherはこのエラーを受けて購読をストアから削除する。
var ErrSubscriptionGone = errors.New("購読エンドポイントが失効しています")

// Subscription はWeb Push購読の送信に必要な情報。
type Subscription struct {
	// Endpoint はプッシュサービスのエンドポイントURL。
	Endpoint string
	// P256dh はクライアントの公開鍵。
	P256dh string
	// Auth はクライアントの認証シークレット。
	Auth string
}

// PushProvider はWeb Push配信の抽象。テストではフェイク実装に差し替える。
type PushProvider interface {
	// Send は1つの購読エンドポイントへペイロードを送信する。
	// エンドポイントが失効している場合はErrSubscriptionGoneを返す。
	Send(ctx context.Context, sub Subscription, message []byte) error
}

// WebPushProvider はVAPID認証を用いるWeb Push配信の実装。
type WebPushProvider struct {
	// publicKey はVAPID公開鍵。
	publicKey string
	// privateKey はVAPID秘密鍵。
	privateKey string
	// subscriber はVAPIDのsubクレーム（mailto: URI）。
	subscriber string
}

// NewWebPushProvider は新しいWebPushProviderを生成する。
// 鍵が未設定の場合はnilを返し、Push配信は無効として扱われる。
func NewWebPushProvider(publicKey, privateKey, subscriber string) *WebPushProvider {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &WebPushProvider{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// PublicKey はクライアント登録用のVAPID公開鍵を返す。
func (p *WebPushProvider) PublicKey() string { return p.publicKey }

// Send はWeb Pushプロトコルでペイロードを送信する。
// 410 Goneまたは404 Not FoundはErrSubscriptionGoneへ変換する。
func (p *WebPushProvider) Send(ctx context.Context, sub Subscription, message []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      p.subscriber,
		VAPIDPublicKey:  p.publicKey,
		VAPIDPrivateKey: p.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("Web Push送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Web Pushがエラー応答を返しました: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}
