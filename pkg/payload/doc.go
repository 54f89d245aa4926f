// Package payload はWeb Push通知のペイロード型とシリアライズ処理を提供する。
// 通知サービスとフロントエンドのService Workerの間のワイヤ形式を定義する。
package payload
