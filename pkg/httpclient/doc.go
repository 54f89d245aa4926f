// Package httpclient はサービス間通信用のJSON HTTPクライアントを提供する。
// タイムアウト設定とユーザーIDの伝播を共通化する。
package httpclient
