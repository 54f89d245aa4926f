package notification

import (
	"context"
	"fmt"
	"net/url"

	"github.com/LemuelVelez/thesis-grader/pkg/httpclient"
)

// RegistryClient はレジストリサービスをHTTP経由で参照するコラボレーター実装。
// UserDirectory・GroupService・ScheduleService・EvaluationServiceのすべてを満たす。
type RegistryClient struct {
	// client はレジストリサービスへのHTTPクライアント。
	client *httpclient.Client
}

// NewRegistryClient は新しいレジストリクライアントを生成する。
// baseURLにはレジストリサービスのベースURL（例: "http://registry:8087"）を指定する。
func NewRegistryClient(baseURL string) *RegistryClient {
	return &RegistryClient{client: httpclient.New(baseURL)}
}

// NewCollaborators はレジストリクライアントをコラボレーター一式として束ねる。
func NewCollaborators(rc *RegistryClient) Collaborators {
	return Collaborators{
		Directory:   rc,
		Groups:      rc,
		Schedules:   rc,
		Evaluations: rc,
	}
}

// FindUser はIDでユーザーを取得する。
func (rc *RegistryClient) FindUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := rc.client.GetJSON(ctx, "/api/v1/users/"+url.PathEscape(id), &u); err != nil {
		if httpclient.IsNotFound(err) {
			return User{}, fmt.Errorf("ユーザー %s: %w", id, ErrEntityNotFound)
		}
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// FindUsersByRole は指定ロールの有効なユーザー一覧を取得する。
func (rc *RegistryClient) FindUsersByRole(ctx context.Context, role string) ([]User, error) {
	var users []User
	if err := rc.client.GetJSON(ctx, "/api/v1/users?role="+url.QueryEscape(role), &users); err != nil {
		return nil, fmt.Errorf("ロール別ユーザー一覧の取得に失敗: %w", err)
	}
	return users, nil
}

// FindGroup はIDで論文グループを取得する。
func (rc *RegistryClient) FindGroup(ctx context.Context, id string) (ThesisGroup, error) {
	var g ThesisGroup
	if err := rc.client.GetJSON(ctx, "/api/v1/groups/"+url.PathEscape(id), &g); err != nil {
		if httpclient.IsNotFound(err) {
			return ThesisGroup{}, fmt.Errorf("論文グループ %s: %w", id, ErrEntityNotFound)
		}
		return ThesisGroup{}, fmt.Errorf("論文グループの取得に失敗: %w", err)
	}
	return g, nil
}

// ListGroups は全論文グループの一覧を取得する。
func (rc *RegistryClient) ListGroups(ctx context.Context) ([]ThesisGroup, error) {
	var groups []ThesisGroup
	if err := rc.client.GetJSON(ctx, "/api/v1/groups", &groups); err != nil {
		return nil, fmt.Errorf("論文グループ一覧の取得に失敗: %w", err)
	}
	return groups, nil
}

// FindSchedule はIDで審査スケジュールを取得する。
func (rc *RegistryClient) FindSchedule(ctx context.Context, id string) (DefenseSchedule, error) {
	var s DefenseSchedule
	if err := rc.client.GetJSON(ctx, "/api/v1/schedules/"+url.PathEscape(id), &s); err != nil {
		if httpclient.IsNotFound(err) {
			return DefenseSchedule{}, fmt.Errorf("審査スケジュール %s: %w", id, ErrEntityNotFound)
		}
		return DefenseSchedule{}, fmt.Errorf("審査スケジュールの取得に失敗: %w", err)
	}
	return s, nil
}

// ListSchedules は全審査スケジュールの一覧を取得する。
func (rc *RegistryClient) ListSchedules(ctx context.Context) ([]DefenseSchedule, error) {
	var schedules []DefenseSchedule
	if err := rc.client.GetJSON(ctx, "/api/v1/schedules", &schedules); err != nil {
		return nil, fmt.Errorf("審査スケジュール一覧の取得に失敗: %w", err)
	}
	return schedules, nil
}

// FindEvaluation はIDで審査評価を取得する。
func (rc *RegistryClient) FindEvaluation(ctx context.Context, id string) (Evaluation, error) {
	var e Evaluation
	if err := rc.client.GetJSON(ctx, "/api/v1/evaluations/"+url.PathEscape(id), &e); err != nil {
		if httpclient.IsNotFound(err) {
			return Evaluation{}, fmt.Errorf("審査評価 %s: %w", id, ErrEntityNotFound)
		}
		return Evaluation{}, fmt.Errorf("審査評価の取得に失敗: %w", err)
	}
	return e, nil
}
