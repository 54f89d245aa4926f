// Package middleware は各サービスで共有するGinミドルウェアを提供する。
// JWT認証、パニック回復、CORSの共通処理を含む。
package middleware
