package notification

import (
	"context"
	"errors"
	"time"
)

// ErrEntityNotFound は外部コラボレーターが参照先エンティティを見つけられなかったことを表す。
// 必須コンテキストではNotFoundErrorへ、任意コンテキストではフィールドの省略へ変換される。
var ErrEntityNotFound = errors.New("エンティティが見つかりません")

// userStatusActive は有効なユーザーのステータス値。
const userStatusActive = "active"

// User はユーザーディレクトリが返すユーザー情報。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Name はユーザーの氏名。
	Name string `json:"name"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。
	Role string `json:"role"`
	// Status はユーザーの状態（active / disabled）。
	Status string `json:"status"`
}

// IsActive はユーザーが通知の受信対象として有効かを返す。
func (u User) IsActive() bool { return u.Status == userStatusActive }

// ThesisGroup は論文グループサービスが返すグループ情報。
type ThesisGroup struct {
	// ID はグループの一意識別子。
	ID string `json:"id"`
	// Title は論文の題目。
	Title string `json:"title"`
	// Program はグループの所属プログラム。
	Program string `json:"program"`
	// Term はグループの学期。
	Term string `json:"term"`
	// AdviserID は指導教員のユーザーID。未割り当ての場合は空。
	AdviserID string `json:"adviser_id"`
	// StudentIDs は学生メンバーのユーザーID一覧。
	StudentIDs []string `json:"student_ids"`
}

// DefenseSchedule は審査スケジュールサービスが返すスケジュール情報。
type DefenseSchedule struct {
	// ID はスケジュールの一意識別子。
	ID string `json:"id"`
	// GroupID は対象の論文グループID。
	GroupID string `json:"group_id"`
	// ScheduledAt は審査の開催日時。
	ScheduledAt time.Time `json:"scheduled_at"`
	// Room は審査の会場。
	Room string `json:"room"`
	// PanelistIDs は審査委員のユーザーID一覧。
	PanelistIDs []string `json:"panelist_ids"`
	// CreatedBy はスケジュール作成者のユーザーID。
	CreatedBy string `json:"created_by"`
}

// Evaluation は評価サービスが返す審査評価情報。
type Evaluation struct {
	// ID は評価の一意識別子。
	ID string `json:"id"`
	// ScheduleID は対象の審査スケジュールID。
	ScheduleID string `json:"schedule_id"`
	// EvaluatorID は評価者のユーザーID。
	EvaluatorID string `json:"evaluator_id"`
	// Status は評価の状況（draft / submitted / finalized）。
	Status string `json:"status"`
}

// UserDirectory はユーザーディレクトリへの読み取りアクセスを提供する。
type UserDirectory interface {
	// FindUser はIDでユーザーを検索する。未存在ならErrEntityNotFoundを返す。
	FindUser(ctx context.Context, id string) (User, error)
	// FindUsersByRole は指定ロールの有効なユーザー一覧を返す。
	FindUsersByRole(ctx context.Context, role string) ([]User, error)
}

// GroupService は論文グループへの読み取りアクセスを提供する。
type GroupService interface {
	// FindGroup はIDでグループを検索する。未存在ならErrEntityNotFoundを返す。
	FindGroup(ctx context.Context, id string) (ThesisGroup, error)
	// ListGroups は全グループの一覧を返す。カタログAPI用。
	ListGroups(ctx context.Context) ([]ThesisGroup, error)
}

// ScheduleService は審査スケジュールへの読み取りアクセスを提供する。
type ScheduleService interface {
	// FindSchedule はIDでスケジュールを検索する。未存在ならErrEntityNotFoundを返す。
	FindSchedule(ctx context.Context, id string) (DefenseSchedule, error)
	// ListSchedules は全スケジュールの一覧を返す。カタログAPI用。
	ListSchedules(ctx context.Context) ([]DefenseSchedule, error)
}

// EvaluationService は審査評価への読み取りアクセスを提供する。
type EvaluationService interface {
	// FindEvaluation はIDで評価を検索する。未存在ならErrEntityNotFoundを返す。
	FindEvaluation(ctx context.Context, id string) (Evaluation, error)
}

// Collaborators は通知エンジンが参照する外部コラボレーター一式。
type Collaborators struct {
	// Directory はユーザーディレクトリ。
	Directory UserDirectory
	// Groups は論文グループサービス。
	Groups GroupService
	// Schedules は審査スケジュールサービス。
	Schedules ScheduleService
	// Evaluations は評価サービス。
	Evaluations EvaluationService
}
