package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// scheduleDatetimeFormat は審査日時の表示フォーマット。
// Content Builderの決定性を保つため固定する。
const scheduleDatetimeFormat = "2006-01-02 15:04"

// ResolvedContext はincludeフィールドごとに描画済みの値を保持する。
// 生成後は変更しない。
type ResolvedContext map[IncludeField]string

// ContextResolver はコンテキストIDから参照先エンティティを取得し、
// includeフィールドの値へ平坦化する。
type ContextResolver struct {
	// collaborators は参照先の外部コラボレーター一式。
	collaborators Collaborators
}

// NewContextResolver は新しいContextResolverを生成する。
func NewContextResolver(collaborators Collaborators) *ContextResolver {
	return &ContextResolver{collaborators: collaborators}
}

// Resolve はテンプレートの必須キーを検証したうえで、指定された
// コンテキストIDをすべて解決してResolvedContextを構築する。
//
// 必須キーのIDが欠けている場合はValidationError、必須キーの参照先が
// 存在しない場合はNotFoundErrorを返す。任意キーの参照先が存在しない
// 場合は、そのキー由来のフィールドを黙って省略する。
func (r *ContextResolver) Resolve(ctx context.Context, tmpl Template, contextIDs map[ContextKey]string) (ResolvedContext, error) {
	for _, key := range tmpl.RequiredContextKeys {
		if contextIDs[key] == "" {
			return nil, newValidationErrorf("必須コンテキストが指定されていません: %s", key)
		}
	}

	resolved := make(ResolvedContext)

	if id := contextIDs[ContextKeyGroup]; id != "" {
		if err := r.resolveGroup(ctx, id, resolved); err != nil {
			if handled, herr := degradeOrFail(tmpl, ContextKeyGroup, err); !handled {
				return nil, herr
			}
		}
	}

	if id := contextIDs[ContextKeySchedule]; id != "" {
		if err := r.resolveSchedule(ctx, id, resolved); err != nil {
			if handled, herr := degradeOrFail(tmpl, ContextKeySchedule, err); !handled {
				return nil, herr
			}
		}
	}

	if id := contextIDs[ContextKeyEvaluation]; id != "" {
		if err := r.resolveEvaluation(ctx, id, resolved); err != nil {
			if handled, herr := degradeOrFail(tmpl, ContextKeyEvaluation, err); !handled {
				return nil, herr
			}
		}
	}

	return resolved, nil
}

// degradeOrFail はコンテキスト解決エラーの扱いを決める。
// 参照先未存在かつ任意キーなら省略（handled=true）、必須キーならNotFoundError、
// それ以外のエラーはそのまま失敗させる。
func degradeOrFail(tmpl Template, key ContextKey, err error) (handled bool, out error) {
	if errors.Is(err, ErrEntityNotFound) {
		if tmpl.RequiresContext(key) {
			return false, newNotFoundErrorf("必須コンテキストの参照先が存在しません: %s", key)
		}
		return true, nil
	}
	return false, fmt.Errorf("コンテキスト %s の解決に失敗: %w", key, err)
}

// resolveGroup は論文グループ由来のフィールドを解決する。
func (r *ContextResolver) resolveGroup(ctx context.Context, groupID string, resolved ResolvedContext) error {
	group, err := r.collaborators.Groups.FindGroup(ctx, groupID)
	if err != nil {
		return err
	}

	resolved[IncludeGroupTitle] = group.Title
	resolved[IncludeGroupProgram] = group.Program
	resolved[IncludeGroupTerm] = group.Term

	// 指導教員の氏名はユーザー参照に失敗してもフィールド単位で省略する
	if group.AdviserID != "" {
		if adviser, err := r.collaborators.Directory.FindUser(ctx, group.AdviserID); err == nil {
			resolved[IncludeAdviserName] = adviser.Name
		}
	}
	return nil
}

// resolveSchedule は審査スケジュール由来のフィールドを解決する。
// スケジュールが属するグループの題目も補完する。
func (r *ContextResolver) resolveSchedule(ctx context.Context, scheduleID string, resolved ResolvedContext) error {
	schedule, err := r.collaborators.Schedules.FindSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}

	resolved[IncludeScheduleDatetime] = schedule.ScheduledAt.In(time.UTC).Format(scheduleDatetimeFormat)
	if schedule.Room != "" {
		resolved[IncludeScheduleRoom] = schedule.Room
	}

	// グループIDが明示指定されていない場合でも題目を補完する
	if _, ok := resolved[IncludeGroupTitle]; !ok && schedule.GroupID != "" {
		if group, err := r.collaborators.Groups.FindGroup(ctx, schedule.GroupID); err == nil {
			resolved[IncludeGroupTitle] = group.Title
		}
	}

	if len(schedule.PanelistIDs) > 0 {
		names := make([]string, 0, len(schedule.PanelistIDs))
		for _, panelistID := range schedule.PanelistIDs {
			panelist, err := r.collaborators.Directory.FindUser(ctx, panelistID)
			if err != nil {
				continue
			}
			names = append(names, panelist.Name)
		}
		if len(names) > 0 {
			resolved[IncludePanelistNames] = strings.Join(names, "、")
		}
	}
	return nil
}

// resolveEvaluation は審査評価由来のフィールドを解決する。
func (r *ContextResolver) resolveEvaluation(ctx context.Context, evaluationID string, resolved ResolvedContext) error {
	evaluation, err := r.collaborators.Evaluations.FindEvaluation(ctx, evaluationID)
	if err != nil {
		return err
	}

	resolved[IncludeEvaluationStatus] = evaluation.Status

	if evaluation.EvaluatorID != "" {
		if evaluator, err := r.collaborators.Directory.FindUser(ctx, evaluation.EvaluatorID); err == nil {
			resolved[IncludeEvaluatorName] = evaluator.Name
		}
	}
	return nil
}
