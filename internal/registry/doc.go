// Package registry は学事レジストリサービスの実装を提供する。
// ユーザー、論文グループ、審査スケジュール、審査評価のマスタデータを管理し、
// 通知サービスから参照される内部APIを公開する。
package registry
