// Package notification は論文審査管理システムの通知エンジンを提供する。
//
// テンプレートと宛先ルールから受信者集合を解決し、通知レコードを
// 一括永続化したうえでWeb Pushをベストエフォートで配信する。
// 既読管理とPush購読の登録・削除も行う。
package notification
