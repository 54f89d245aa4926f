package payload

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyTitle はタイトルが空のペイロードをシリアライズしようとしたときのエラー。
var ErrEmptyTitle = errors.New("ペイロードのタイトルが空です")

// ErrEmptyNotificationID は通知レコードIDが空のペイロードをシリアライズしようとしたときのエラー。
var ErrEmptyNotificationID = errors.New("ペイロードの通知IDが空です")

// Marshal はPushペイロードを検証したうえでJSONにシリアライズする。
// Web Push送信前に必ずこの関数を通すことで、不完全なペイロードの送出を防ぐ。
func Marshal(p Push) ([]byte, error) {
	if p.Title == "" {
		return nil, ErrEmptyTitle
	}
	if p.Data.NotificationID == "" {
		return nil, ErrEmptyNotificationID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ペイロードのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// Unmarshal はJSONからPushペイロードを復元する。テストとデバッグ用。
func Unmarshal(data []byte) (Push, error) {
	var p Push
	if err := json.Unmarshal(data, &p); err != nil {
		return Push{}, fmt.Errorf("ペイロードのデシリアライズに失敗: %w", err)
	}
	return p, nil
}
