package payload

// Type は通知の種類を表す。テンプレートIDと一致する。
type Type string

const (
	// TypeDefenseScheduleCreated は審査スケジュールが作成されたことを表す。
	TypeDefenseScheduleCreated Type = "defense_schedule_created"
	// TypeDefenseScheduleUpdated は審査スケジュールが変更されたことを表す。
	TypeDefenseScheduleUpdated Type = "defense_schedule_updated"
	// TypeEvaluationSubmitted は審査評価が提出されたことを表す。
	TypeEvaluationSubmitted Type = "evaluation_submitted"
	// TypeGroupMembershipChanged は論文グループの構成が変更されたことを表す。
	TypeGroupMembershipChanged Type = "group_membership_changed"
	// TypeGeneralAnnouncement は一般のお知らせを表す。
	TypeGeneralAnnouncement Type = "general_announcement"
)

// Push はWeb Push購読エンドポイントへ送信するペイロードを表す。
// Service Workerがこの構造をデコードして通知を表示する。
type Push struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Tag は通知のグルーピング用タグ。同一タグの通知は端末上で置き換えられる。
	Tag string `json:"tag,omitempty"`
	// Data は通知に紐づく付加情報。
	Data PushData `json:"data"`
}

// PushData はPushペイロードの付加情報。
type PushData struct {
	// NotificationID は対応するアプリ内通知レコードのID。
	NotificationID string `json:"notification_id"`
	// Type は通知の種類。
	Type Type `json:"type"`
	// URL は通知タップ時に開く画面のパス。
	URL string `json:"url,omitempty"`
}
