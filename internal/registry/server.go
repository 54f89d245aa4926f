package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	registrydb "github.com/LemuelVelez/thesis-grader/internal/registry/db"
	"github.com/LemuelVelez/thesis-grader/pkg/middleware"
)

// Server はレジストリサービスのHTTPサーバー。
// 通知サービスから参照される内部APIのため、認証は信頼済みネットワークに委ねる。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *registrydb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいレジストリサーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := envOr("REGISTRY_DB_PATH", "/data/registry.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		port:    port,
		queries: registrydb.New(sqlDB),
		db:      sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			// ユーザー登録
			users.POST("", s.handleCreateUser())
			// ユーザー取得
			users.GET("/:id", s.handleGetUser())
			// ユーザー一覧取得（クエリパラメータ: role）
			users.GET("", s.handleListUsers())
		}

		groups := api.Group("/groups")
		{
			// 論文グループ登録
			groups.POST("", s.handleCreateGroup())
			// 論文グループ取得
			groups.GET("/:id", s.handleGetGroup())
			// 論文グループ一覧取得
			groups.GET("", s.handleListGroups())
		}

		schedules := api.Group("/schedules")
		{
			// 審査スケジュール登録
			schedules.POST("", s.handleCreateSchedule())
			// 審査スケジュール取得
			schedules.GET("/:id", s.handleGetSchedule())
			// 審査スケジュール一覧取得
			schedules.GET("", s.handleListSchedules())
		}

		evaluations := api.Group("/evaluations")
		{
			// 審査評価登録
			evaluations.POST("", s.handleCreateEvaluation())
			// 審査評価取得
			evaluations.GET("/:id", s.handleGetEvaluation())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "registry"})
	})
}

// userResponse はユーザーのJSONレスポンス構造。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name はユーザーの氏名。
	Name string `json:"name"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。
	Role string `json:"role"`
	// Status はユーザーの状態。
	Status string `json:"status"`
}

// toUserResponse はDB行をJSONレスポンスに変換する。
func toUserResponse(u registrydb.User) userResponse {
	return userResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}
}

// createUserRequest はユーザー登録リクエストのJSON構造。
type createUserRequest struct {
	// Name はユーザーの氏名。
	Name string `json:"name" binding:"required"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Role はユーザーのロール。
	Role string `json:"role" binding:"required,oneof=student adviser panelist coordinator admin"`
	// Status はユーザーの状態。未指定の場合はactive。
	Status string `json:"status" binding:"omitempty,oneof=active disabled"`
}

// handleCreateUser はユーザーを登録するハンドラ。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		status := req.Status
		if status == "" {
			status = "active"
		}

		userID := uuid.New().String()
		if err := s.queries.CreateUser(c.Request.Context(), registrydb.CreateUserParams{
			ID:     userID,
			Name:   req.Name,
			Email:  req.Email,
			Role:   req.Role,
			Status: status,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの登録に失敗しました"})
			log.Printf("ユーザー登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": userID})
	}
}

// handleGetUser はユーザーを1件取得するハンドラ。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.queries.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの取得に失敗しました"})
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

// handleListUsers はユーザー一覧を返すハンドラ。roleクエリで絞り込める。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			users []registrydb.User
			err   error
		)
		if role := c.Query("role"); role != "" {
			users, err = s.queries.ListUsersByRole(c.Request.Context(), role)
		} else {
			users, err = s.queries.ListUsers(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー一覧の取得に失敗しました"})
			log.Printf("ユーザー一覧取得エラー: %v", err)
			return
		}

		responses := make([]userResponse, 0, len(users))
		for _, u := range users {
			responses = append(responses, toUserResponse(u))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// groupResponse は論文グループのJSONレスポンス構造。
type groupResponse struct {
	// ID はグループの一意識別子。
	ID string `json:"id"`
	// Title は論文の題目。
	Title string `json:"title"`
	// Program は所属プログラム。
	Program string `json:"program"`
	// Term は学期。
	Term string `json:"term"`
	// AdviserID は指導教員のユーザーID。
	AdviserID string `json:"adviser_id"`
	// StudentIDs は学生メンバーのユーザーID一覧。
	StudentIDs []string `json:"student_ids"`
}

// createGroupRequest は論文グループ登録リクエストのJSON構造。
type createGroupRequest struct {
	// Title は論文の題目。
	Title string `json:"title" binding:"required"`
	// Program は所属プログラム。
	Program string `json:"program"`
	// Term は学期。
	Term string `json:"term"`
	// AdviserID は指導教員のユーザーID。
	AdviserID string `json:"adviser_id"`
	// StudentIDs は学生メンバーのユーザーID一覧。
	StudentIDs []string `json:"student_ids"`
}

// handleCreateGroup は論文グループを登録するハンドラ。
// グループ本体と学生メンバーを単一トランザクションで挿入する。
func (s *Server) handleCreateGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		groupID := uuid.New().String()
		tx, err := s.db.BeginTx(c.Request.Context(), nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの登録に失敗しました"})
			log.Printf("トランザクション開始エラー: %v", err)
			return
		}
		defer tx.Rollback() //nolint:errcheck

		qtx := s.queries.WithTx(tx)
		if err := qtx.CreateGroup(c.Request.Context(), registrydb.CreateGroupParams{
			ID:        groupID,
			Title:     req.Title,
			Program:   req.Program,
			Term:      req.Term,
			AdviserID: req.AdviserID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの登録に失敗しました"})
			log.Printf("グループ登録エラー: %v", err)
			return
		}
		for _, studentID := range req.StudentIDs {
			if err := qtx.AddGroupStudent(c.Request.Context(), registrydb.AddGroupStudentParams{
				GroupID: groupID,
				UserID:  studentID,
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "学生メンバーの登録に失敗しました"})
				log.Printf("学生メンバー登録エラー: %v", err)
				return
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "グループの登録に失敗しました"})
			log.Printf("コミットエラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": groupID})
	}
}

// handleGetGroup は論文グループを1件取得するハンドラ。
func (s *Server) handleGetGroup() gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := s.queries.GetGroup(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "論文グループが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "論文グループの取得に失敗しました"})
			log.Printf("グループ取得エラー: %v", err)
			return
		}

		students, err := s.queries.ListGroupStudents(c.Request.Context(), g.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "学生メンバーの取得に失敗しました"})
			log.Printf("学生メンバー取得エラー: %v", err)
			return
		}
		if students == nil {
			students = []string{}
		}

		c.JSON(http.StatusOK, groupResponse{
			ID:         g.ID,
			Title:      g.Title,
			Program:    g.Program,
			Term:       g.Term,
			AdviserID:  g.AdviserID,
			StudentIDs: students,
		})
	}
}

// handleListGroups は論文グループ一覧を返すハンドラ。
func (s *Server) handleListGroups() gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := s.queries.ListGroups(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "論文グループ一覧の取得に失敗しました"})
			log.Printf("グループ一覧取得エラー: %v", err)
			return
		}

		responses := make([]groupResponse, 0, len(groups))
		for _, g := range groups {
			students, err := s.queries.ListGroupStudents(c.Request.Context(), g.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "学生メンバーの取得に失敗しました"})
				log.Printf("学生メンバー取得エラー: %v", err)
				return
			}
			if students == nil {
				students = []string{}
			}
			responses = append(responses, groupResponse{
				ID:         g.ID,
				Title:      g.Title,
				Program:    g.Program,
				Term:       g.Term,
				AdviserID:  g.AdviserID,
				StudentIDs: students,
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

// scheduleResponse は審査スケジュールのJSONレスポンス構造。
type scheduleResponse struct {
	// ID はスケジュールの一意識別子。
	ID string `json:"id"`
	// GroupID は対象の論文グループID。
	GroupID string `json:"group_id"`
	// ScheduledAt は審査の開催日時（RFC3339形式）。
	ScheduledAt string `json:"scheduled_at"`
	// Room は審査の会場。
	Room string `json:"room"`
	// PanelistIDs は審査委員のユーザーID一覧。
	PanelistIDs []string `json:"panelist_ids"`
	// CreatedBy はスケジュール作成者のユーザーID。
	CreatedBy string `json:"created_by"`
}

// createScheduleRequest は審査スケジュール登録リクエストのJSON構造。
type createScheduleRequest struct {
	// GroupID は対象の論文グループID。
	GroupID string `json:"group_id" binding:"required"`
	// ScheduledAt は審査の開催日時（RFC3339形式）。
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	// Room は審査の会場。
	Room string `json:"room"`
	// PanelistIDs は審査委員のユーザーID一覧。
	PanelistIDs []string `json:"panelist_ids"`
	// CreatedBy はスケジュール作成者のユーザーID。
	CreatedBy string `json:"created_by"`
}

// handleCreateSchedule は審査スケジュールを登録するハンドラ。
// スケジュール本体と審査委員を単一トランザクションで挿入する。
func (s *Server) handleCreateSchedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		scheduleID := uuid.New().String()
		tx, err := s.db.BeginTx(c.Request.Context(), nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "スケジュールの登録に失敗しました"})
			log.Printf("トランザクション開始エラー: %v", err)
			return
		}
		defer tx.Rollback() //nolint:errcheck

		qtx := s.queries.WithTx(tx)
		if err := qtx.CreateSchedule(c.Request.Context(), registrydb.CreateScheduleParams{
			ID:          scheduleID,
			GroupID:     req.GroupID,
			ScheduledAt: req.ScheduledAt.UTC(),
			Room:        req.Room,
			CreatedBy:   req.CreatedBy,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "スケジュールの登録に失敗しました"})
			log.Printf("スケジュール登録エラー: %v", err)
			return
		}
		for _, panelistID := range req.PanelistIDs {
			if err := qtx.AddSchedulePanelist(c.Request.Context(), registrydb.AddSchedulePanelistParams{
				ScheduleID: scheduleID,
				UserID:     panelistID,
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "審査委員の登録に失敗しました"})
				log.Printf("審査委員登録エラー: %v", err)
				return
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "スケジュールの登録に失敗しました"})
			log.Printf("コミットエラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": scheduleID})
	}
}

// toScheduleResponse はDB行と審査委員一覧をJSONレスポンスに変換する。
func toScheduleResponse(sc registrydb.DefenseSchedule, panelists []string) scheduleResponse {
	if panelists == nil {
		panelists = []string{}
	}
	return scheduleResponse{
		ID:          sc.ID,
		GroupID:     sc.GroupID,
		ScheduledAt: sc.ScheduledAt.UTC().Format(time.RFC3339),
		Room:        sc.Room,
		PanelistIDs: panelists,
		CreatedBy:   sc.CreatedBy,
	}
}

// handleGetSchedule は審査スケジュールを1件取得するハンドラ。
func (s *Server) handleGetSchedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := s.queries.GetSchedule(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "審査スケジュールが見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査スケジュールの取得に失敗しました"})
			log.Printf("スケジュール取得エラー: %v", err)
			return
		}

		panelists, err := s.queries.ListSchedulePanelists(c.Request.Context(), sc.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査委員の取得に失敗しました"})
			log.Printf("審査委員取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toScheduleResponse(sc, panelists))
	}
}

// handleListSchedules は審査スケジュール一覧を返すハンドラ。
func (s *Server) handleListSchedules() gin.HandlerFunc {
	return func(c *gin.Context) {
		schedules, err := s.queries.ListSchedules(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査スケジュール一覧の取得に失敗しました"})
			log.Printf("スケジュール一覧取得エラー: %v", err)
			return
		}

		responses := make([]scheduleResponse, 0, len(schedules))
		for _, sc := range schedules {
			panelists, err := s.queries.ListSchedulePanelists(c.Request.Context(), sc.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "審査委員の取得に失敗しました"})
				log.Printf("審査委員取得エラー: %v", err)
				return
			}
			responses = append(responses, toScheduleResponse(sc, panelists))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// evaluationResponse は審査評価のJSONレスポンス構造。
type evaluationResponse struct {
	// ID は評価の一意識別子。
	ID string `json:"id"`
	// ScheduleID は対象の審査スケジュールID。
	ScheduleID string `json:"schedule_id"`
	// EvaluatorID は評価者のユーザーID。
	EvaluatorID string `json:"evaluator_id"`
	// Status は評価の状況。
	Status string `json:"status"`
}

// createEvaluationRequest は審査評価登録リクエストのJSON構造。
type createEvaluationRequest struct {
	// ScheduleID は対象の審査スケジュールID。
	ScheduleID string `json:"schedule_id" binding:"required"`
	// EvaluatorID は評価者のユーザーID。
	EvaluatorID string `json:"evaluator_id" binding:"required"`
	// Status は評価の状況。未指定の場合はdraft。
	Status string `json:"status" binding:"omitempty,oneof=draft submitted finalized"`
}

// handleCreateEvaluation は審査評価を登録するハンドラ。
func (s *Server) handleCreateEvaluation() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createEvaluationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		status := req.Status
		if status == "" {
			status = "draft"
		}

		evaluationID := uuid.New().String()
		if err := s.queries.CreateEvaluation(c.Request.Context(), registrydb.CreateEvaluationParams{
			ID:          evaluationID,
			ScheduleID:  req.ScheduleID,
			EvaluatorID: req.EvaluatorID,
			Status:      status,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査評価の登録に失敗しました"})
			log.Printf("評価登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": evaluationID})
	}
}

// handleGetEvaluation は審査評価を1件取得するハンドラ。
func (s *Server) handleGetEvaluation() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := s.queries.GetEvaluation(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "審査評価が見つかりません"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査評価の取得に失敗しました"})
			log.Printf("評価取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, evaluationResponse{
			ID:          e.ID,
			ScheduleID:  e.ScheduleID,
			EvaluatorID: e.EvaluatorID,
			Status:      e.Status,
		})
	}
}

// envOr は環境変数の値を返す。未設定の場合はフォールバック値を返す。
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
