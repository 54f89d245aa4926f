package notification

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	notificationdb "github.com/LemuelVelez/thesis-grader/internal/notification/db"
	"github.com/LemuelVelez/thesis-grader/pkg/middleware"
)

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// collaborators はレジストリサービスへの参照一式。
	collaborators Collaborators
	// contextResolver はコンテキストIDをincludeフィールド値へ解決する。
	contextResolver *ContextResolver
	// recipientResolver は宛先ルールを受信者集合へ解決する。
	recipientResolver *RecipientResolver
	// dispatcher は通知の永続化とPushファンアウトを行う。
	dispatcher *Dispatcher
	// pushProvider はWeb Push配信の実装。未設定の場合はnil。
	pushProvider *WebPushProvider
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーション適用を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("NOTIFICATION_DB_PATH", "/data/notification.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	registryURL := getEnvOr("REGISTRY_URL", "http://localhost:8087")
	collaborators := NewCollaborators(NewRegistryClient(registryURL))

	// VAPID鍵が未設定の場合、Push配信は無効のままアプリ内通知のみ動作する
	provider := NewWebPushProvider(
		os.Getenv("VAPID_PUBLIC_KEY"),
		os.Getenv("VAPID_PRIVATE_KEY"),
		getEnvOr("VAPID_SUBSCRIBER", "mailto:admin@thesis-grader.local"),
	)
	if provider == nil {
		log.Println("VAPID鍵が未設定のため、Push配信を無効化して起動します")
	}

	queries := notificationdb.New(sqlDB)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:            router,
		port:              port,
		queries:           queries,
		db:                sqlDB,
		collaborators:     collaborators,
		contextResolver:   NewContextResolver(collaborators),
		recipientResolver: NewRecipientResolver(collaborators),
		dispatcher:        newDispatcherForProvider(sqlDB, queries, provider),
		pushProvider:      provider,
	}
	s.setupRoutes()

	return s, nil
}

// newDispatcherForProvider はnilインターフェースの罠を避けてDispatcherを組み立てる。
// *WebPushProviderのnilをそのまま渡すと非nilインターフェースになるため、ここで判定する。
func newDispatcherForProvider(sqlDB *sql.DB, queries *notificationdb.Queries, provider *WebPushProvider) *Dispatcher {
	if provider == nil {
		return NewDispatcher(sqlDB, queries, nil)
	}
	return NewDispatcher(sqlDB, queries, provider)
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		notifications := api.Group("/notifications")
		{
			// 通知一覧取得（?unread=true / ?limit=n）
			notifications.GET("", s.handleList())
			// 未読通知数の取得
			notifications.GET("/unread-count", s.handleUnreadCount())
			// 自動通知の送信（テンプレート + 宛先ルール）
			notifications.POST("/automatic", s.handleSendAutomatic())
			// 自動通知のリクエスト構築用カタログ
			notifications.GET("/options", s.handleListOptions())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllRead())
		}

		push := api.Group("/push")
		{
			// VAPID公開鍵の取得
			push.GET("/public-key", s.handlePushPublicKey())
			// Push購読の登録
			push.POST("/subscriptions", s.handleSubscribePush())
			// Push購読の解除
			push.DELETE("/subscriptions", s.handleUnsubscribePush())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	})
}

// respondError はエラー分類に応じたHTTPステータスでエラーレスポンスを返す。
func respondError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		forbiddenErr  *ForbiddenError
		notFoundErr   *NotFoundError
		emptyErr      *EmptyRecipientSetError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Message})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Message})
	case errors.As(err, &emptyErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": emptyErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "内部サーバーエラーが発生しました"})
		log.Printf("通知APIエラー: %v", err)
	}
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// Type は通知の種類。
	Type string `json:"type"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Data は作成時点のコンテキストスナップショット。
	Data json.RawMessage `json:"data"`
	// ReadAt は既読日時（RFC3339形式）。未読の場合はnull。
	ReadAt *string `json:"read_at"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Data:      json.RawMessage(n.Data),
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt.Valid {
		readAt := n.ReadAt.Time.Format(time.RFC3339)
		resp.ReadAt = &readAt
	}
	return resp
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// sendAutomaticRequest は自動通知送信リクエストのJSON構造。
type sendAutomaticRequest struct {
	// Template は使用するテンプレートID。
	Template string `json:"template" binding:"required"`
	// Target は宛先ルール。
	Target Target `json:"target"`
	// Context は通知が参照するコンテキストエンティティのID。
	Context sendContextIDs `json:"context"`
	// IncludeFields は本文に含める項目。未指定の場合はテンプレートのデフォルト。
	IncludeFields []IncludeField `json:"include_fields"`
}

// sendContextIDs は送信リクエストのコンテキストID部分。
type sendContextIDs struct {
	// EvaluationID は審査評価のID。
	EvaluationID string `json:"evaluation_id"`
	// ScheduleID は審査スケジュールのID。
	ScheduleID string `json:"schedule_id"`
	// GroupID は論文グループのID。
	GroupID string `json:"group_id"`
}

// toMap はコンテキストIDをContextKey索引のマップへ変換する。
func (ids sendContextIDs) toMap() map[ContextKey]string {
	return map[ContextKey]string{
		ContextKeyEvaluation: ids.EvaluationID,
		ContextKeySchedule:   ids.ScheduleID,
		ContextKeyGroup:      ids.GroupID,
	}
}

// sendAutomaticResponse は自動通知送信のJSONレスポンス構造。
type sendAutomaticResponse struct {
	// RecipientCount は受信者数。
	RecipientCount int `json:"recipient_count"`
	// RecipientIDs は受信者のユーザーID一覧。
	RecipientIDs []string `json:"recipient_ids"`
	// CreatedNotificationIDs は作成された通知レコードのID一覧。
	CreatedNotificationIDs []string `json:"created_notification_ids"`
	// Dispatch はPush配信の集計結果。
	Dispatch DispatchResult `json:"dispatch"`
}

// handleSendAutomatic は自動通知を送信するハンドラ。
// コンテキスト解決と宛先解決を並行実行し、永続化後にPushをファンアウトする。
func (s *Server) handleSendAutomatic() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := middleware.GetUserID(c)
		if actorID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		// 任意の宛先指定は管理者およびコーディネーターに限定する
		role := middleware.GetRole(c)
		if role != "admin" && role != "coordinator" {
			respondError(c, &ForbiddenError{Message: "自動通知を送信する権限がありません"})
			return
		}

		var req sendAutomaticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		tmpl, err := GetTemplate(req.Template)
		if err != nil {
			respondError(c, err)
			return
		}

		includes, err := resolveIncludes(tmpl, req.IncludeFields)
		if err != nil {
			respondError(c, err)
			return
		}

		contextIDs := req.Context.toMap()

		// コンテキスト解決と宛先解決は互いに依存しないため並行実行する
		var (
			resolved   ResolvedContext
			recipients []string
		)
		g, gctx := errgroup.WithContext(c.Request.Context())
		g.Go(func() error {
			var resolveErr error
			resolved, resolveErr = s.contextResolver.Resolve(gctx, tmpl, contextIDs)
			return resolveErr
		})
		g.Go(func() error {
			var resolveErr error
			recipients, resolveErr = s.recipientResolver.Resolve(gctx, req.Target)
			return resolveErr
		})
		if err := g.Wait(); err != nil {
			respondError(c, err)
			return
		}

		content := BuildContent(tmpl, resolved, includes)

		// レコードのdataには作成時点のコンテキストを凍結して保存する
		data := map[string]any{
			"template": tmpl.ID,
			"fields":   resolved,
		}
		contextSnapshot := map[string]string{}
		for key, id := range contextIDs {
			if id != "" {
				contextSnapshot[string(key)] = id
			}
		}
		if len(contextSnapshot) > 0 {
			data["context"] = contextSnapshot
		}

		outcome, err := s.dispatcher.Dispatch(c.Request.Context(), recipients, tmpl.DefaultType, content, data)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, sendAutomaticResponse{
			RecipientCount:         len(outcome.RecipientIDs),
			RecipientIDs:           outcome.RecipientIDs,
			CreatedNotificationIDs: outcome.NotificationIDs,
			Dispatch:               outcome.Push,
		})
	}
}

// templateResponse はテンプレートカタログのJSONレスポンス構造。
type templateResponse struct {
	// ID はテンプレートの一意識別子。
	ID string `json:"id"`
	// DefaultType は作成される通知のタイプ。
	DefaultType string `json:"default_type"`
	// RequiredContext は必須のコンテキストキー。
	RequiredContext []ContextKey `json:"required_context"`
	// AllowedIncludes は許可されるincludeフィールド。
	AllowedIncludes []IncludeField `json:"allowed_includes"`
	// DefaultIncludes はデフォルトのincludeフィールド。
	DefaultIncludes []IncludeField `json:"default_includes"`
}

// includeOptionResponse はincludeフィールドのカタログ項目。
type includeOptionResponse struct {
	// ID はincludeフィールドの識別子。
	ID IncludeField `json:"id"`
	// Label は表示ラベル。
	Label string `json:"label"`
}

// handleListOptions は自動通知リクエストの構築に必要なカタログを返すハンドラ。
// テンプレート・宛先モード・includeフィールドに加え、レジストリから
// グループとスケジュールの一覧をベストエフォートで取得する。
func (s *Server) handleListOptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		tmplResponses := make([]templateResponse, 0, len(templates))
		typeNames := make([]string, 0, len(templates))
		for _, t := range ListTemplates() {
			tmplResponses = append(tmplResponses, templateResponse{
				ID:              t.ID,
				DefaultType:     string(t.DefaultType),
				RequiredContext: t.RequiredContextKeys,
				AllowedIncludes: t.AllowedIncludes,
				DefaultIncludes: t.DefaultIncludes,
			})
			typeNames = append(typeNames, string(t.DefaultType))
		}

		includeOptions := make([]includeOptionResponse, 0, len(includeFieldOrder))
		for _, f := range includeFieldOrder {
			includeOptions = append(includeOptions, includeOptionResponse{ID: f, Label: includeFieldLabels[f]})
		}

		// コンテキスト候補はレジストリ障害時でもカタログ本体を返せるよう
		// ベストエフォートで取得する
		ctx := c.Request.Context()
		groups, err := s.collaborators.Groups.ListGroups(ctx)
		if err != nil {
			log.Printf("論文グループ一覧の取得に失敗: %v", err)
			groups = []ThesisGroup{}
		}
		schedules, err := s.collaborators.Schedules.ListSchedules(ctx)
		if err != nil {
			log.Printf("審査スケジュール一覧の取得に失敗: %v", err)
			schedules = []DefenseSchedule{}
		}

		c.JSON(http.StatusOK, gin.H{
			"templates":          tmplResponses,
			"target_modes":       targetModes,
			"include_options":    includeOptions,
			"notification_types": typeNames,
			"context": gin.H{
				"groups":    groups,
				"schedules": schedules,
			},
		})
	}
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
// unread=trueで未読のみ、limitで件数を絞り込める。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit := int64(50)
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 || parsed > 200 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1から200の整数で指定してください"})
				return
			}
			limit = parsed
		}

		var (
			notifications []notificationdb.Notification
			err           error
		)
		if c.Query("unread") == "true" {
			notifications, err = s.queries.ListUnreadNotificationsByUser(c.Request.Context(), notificationdb.ListUnreadNotificationsByUserParams{
				UserID: userID,
				Limit:  limit,
			})
		} else {
			notifications, err = s.queries.ListNotificationsByUser(c.Request.Context(), notificationdb.ListNotificationsByUserParams{
				UserID: userID,
				Limit:  limit,
			})
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			log.Printf("通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleUnreadCount は認証済みユーザーの未読通知数を返すハンドラ。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		count, err := s.queries.CountUnreadNotifications(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知数の取得に失敗しました"})
			log.Printf("未読通知数取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"unread_count": count})
	}
}

// handleMarkRead は指定された通知を既読にするハンドラ。
// 既に既読の場合は何も変更せずレコードをそのまま返す（冪等）。
func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID := c.Param("id")
		n, err := s.queries.GetNotification(c.Request.Context(), notificationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(c, newNotFoundErrorf("通知が見つかりません: %s", notificationID))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			log.Printf("通知取得エラー: %v", err)
			return
		}

		// 所有者以外は管理者のみ操作できる
		if n.UserID != userID && middleware.GetRole(c) != "admin" {
			respondError(c, &ForbiddenError{Message: "この通知を操作する権限がありません"})
			return
		}

		// read_atがNULLの場合のみ更新する条件付きUPDATE。既読の場合は0行更新
		if _, err := s.queries.MarkNotificationRead(c.Request.Context(), notificationID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			log.Printf("通知既読処理エラー: %v", err)
			return
		}

		updated, err := s.queries.GetNotification(c.Request.Context(), notificationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			log.Printf("通知再取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponse(updated))
	}
}

// handleMarkAllRead は認証済みユーザーの全未読通知を既読にするハンドラ。
// 条件付きUPDATEのため、連続呼び出しの2回目はupdated_count=0を返す（冪等）。
func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		updated, err := s.queries.MarkAllNotificationsRead(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			log.Printf("全通知既読処理エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated_count": updated})
	}
}

// handlePushPublicKey はPush配信の設定状態とVAPID公開鍵を返すハンドラ。
func (s *Server) handlePushPublicKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.pushProvider == nil {
			c.JSON(http.StatusOK, gin.H{"enabled": false, "reason": "push not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": true, "public_key": s.pushProvider.PublicKey()})
	}
}

// subscribePushRequest はPush購読登録リクエストのJSON構造。
// ブラウザのPushSubscription.toJSON()と同じ形を受け取る。
type subscribePushRequest struct {
	// Endpoint はプッシュサービスのエンドポイントURL。
	Endpoint string `json:"endpoint" binding:"required"`
	// Keys はクライアントの鍵情報。
	Keys struct {
		// P256dh はクライアントの公開鍵。
		P256dh string `json:"p256dh" binding:"required"`
		// Auth はクライアントの認証シークレット。
		Auth string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// handleSubscribePush はPush購読を登録するハンドラ。
// 同一ユーザー・同一エンドポイントの再登録は鍵の更新として扱う。
func (s *Server) handleSubscribePush() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req subscribePushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if err := s.queries.UpsertPushSubscription(c.Request.Context(), notificationdb.UpsertPushSubscriptionParams{
			UserID:   userID,
			Endpoint: req.Endpoint,
			P256dh:   req.Keys.P256dh,
			Auth:     req.Keys.Auth,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Push購読の登録に失敗しました"})
			log.Printf("Push購読登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Push購読を登録しました"})
	}
}

// unsubscribePushRequest はPush購読解除リクエストのJSON構造。
type unsubscribePushRequest struct {
	// Endpoint は解除対象のエンドポイントURL。
	Endpoint string `json:"endpoint" binding:"required"`
}

// handleUnsubscribePush はPush購読を解除するハンドラ。
func (s *Server) handleUnsubscribePush() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req unsubscribePushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if err := s.queries.DeletePushSubscription(c.Request.Context(), notificationdb.DeletePushSubscriptionParams{
			UserID:   userID,
			Endpoint: req.Endpoint,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Push購読の解除に失敗しました"})
			log.Printf("Push購読解除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Push購読を解除しました"})
	}
}

// getEnvOr は環境変数の値を返す。未設定の場合はフォールバック値を返す。
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
