package notification

import (
	"context"
	"errors"
	"fmt"
)

// RecipientResolver は宛先ルールから受信者ユーザーIDの集合を計算する。
// 無効化されたユーザーは常に除外し、結果は重複なく返す。
type RecipientResolver struct {
	// collaborators は参照先の外部コラボレーター一式。
	collaborators Collaborators
}

// NewRecipientResolver は新しいRecipientResolverを生成する。
func NewRecipientResolver(collaborators Collaborators) *RecipientResolver {
	return &RecipientResolver{collaborators: collaborators}
}

// Resolve は宛先ルールを受信者ユーザーIDの集合へ解決する。
// 解決結果が空の場合はEmptyRecipientSetErrorを返し、通知は一切作成されない。
func (r *RecipientResolver) Resolve(ctx context.Context, target Target) ([]string, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	set := newRecipientSet()

	var err error
	switch target.Mode {
	case TargetModeUsers:
		err = r.resolveUsers(ctx, target.UserIDs, set)
	case TargetModeRole:
		err = r.resolveRole(ctx, target.Role, set)
	case TargetModeGroup:
		err = r.resolveGroup(ctx, target, set)
	case TargetModeSchedule:
		err = r.resolveSchedule(ctx, target, set)
	}
	if err != nil {
		return nil, err
	}

	if set.isEmpty() {
		return nil, &EmptyRecipientSetError{Message: "宛先解決の結果、受信者が存在しません"}
	}
	return set.ids(), nil
}

// resolveUsers は明示指定されたユーザー集合を解決する。
// 明示指定は信頼するためディレクトリ未登録でも除外しないが、
// 無効化されていることが確認できたユーザーは除外する。
func (r *RecipientResolver) resolveUsers(ctx context.Context, userIDs []string, set *recipientSet) error {
	for _, id := range userIDs {
		user, err := r.collaborators.Directory.FindUser(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEntityNotFound) {
				set.add(id)
				continue
			}
			return fmt.Errorf("宛先ユーザーの確認に失敗: %w", err)
		}
		if user.IsActive() {
			set.add(id)
		}
	}
	return nil
}

// resolveRole は指定ロールを持つ有効な全ユーザーを解決する。
func (r *RecipientResolver) resolveRole(ctx context.Context, role string, set *recipientSet) error {
	users, err := r.collaborators.Directory.FindUsersByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("ロール別の宛先解決に失敗: %w", err)
	}
	for _, user := range users {
		if user.IsActive() {
			set.add(user.ID)
		}
	}
	return nil
}

// resolveGroup は論文グループの関係者を解決する。
func (r *RecipientResolver) resolveGroup(ctx context.Context, target Target, set *recipientSet) error {
	group, err := r.collaborators.Groups.FindGroup(ctx, target.GroupID)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return newNotFoundErrorf("宛先の論文グループが存在しません: %s", target.GroupID)
		}
		return fmt.Errorf("宛先グループの取得に失敗: %w", err)
	}

	if target.IncludeAdviser && group.AdviserID != "" {
		if err := r.addIfActive(ctx, group.AdviserID, set); err != nil {
			return err
		}
	}
	if target.IncludeStudents {
		for _, studentID := range group.StudentIDs {
			if err := r.addIfActive(ctx, studentID, set); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveSchedule は審査スケジュールの関係者を解決する。
// 学生メンバーはスケジュールが属するグループから辿る。
func (r *RecipientResolver) resolveSchedule(ctx context.Context, target Target, set *recipientSet) error {
	schedule, err := r.collaborators.Schedules.FindSchedule(ctx, target.ScheduleID)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return newNotFoundErrorf("宛先の審査スケジュールが存在しません: %s", target.ScheduleID)
		}
		return fmt.Errorf("宛先スケジュールの取得に失敗: %w", err)
	}

	if target.IncludeStudents && schedule.GroupID != "" {
		group, err := r.collaborators.Groups.FindGroup(ctx, schedule.GroupID)
		if err != nil && !errors.Is(err, ErrEntityNotFound) {
			return fmt.Errorf("スケジュール対象グループの取得に失敗: %w", err)
		}
		if err == nil {
			for _, studentID := range group.StudentIDs {
				if err := r.addIfActive(ctx, studentID, set); err != nil {
					return err
				}
			}
		}
	}
	if target.IncludePanelists {
		for _, panelistID := range schedule.PanelistIDs {
			if err := r.addIfActive(ctx, panelistID, set); err != nil {
				return err
			}
		}
	}
	if target.IncludeCreator && schedule.CreatedBy != "" {
		if err := r.addIfActive(ctx, schedule.CreatedBy, set); err != nil {
			return err
		}
	}
	return nil
}

// addIfActive はユーザーが有効な場合のみ集合へ追加する。
// ディレクトリに存在しないユーザーは除外する。
func (r *RecipientResolver) addIfActive(ctx context.Context, userID string, set *recipientSet) error {
	user, err := r.collaborators.Directory.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			return nil
		}
		return fmt.Errorf("受信者ユーザーの確認に失敗: %w", err)
	}
	if user.IsActive() {
		set.add(userID)
	}
	return nil
}

// recipientSet は挿入順を保つ重複排除済みのユーザーID集合。
type recipientSet struct {
	// seen は追加済みIDの索引。
	seen map[string]struct{}
	// order は挿入順のID一覧。
	order []string
}

// newRecipientSet は空のrecipientSetを生成する。
func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[string]struct{})}
}

// add はIDを集合へ追加する。既出のIDは無視する。
func (s *recipientSet) add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

// isEmpty は集合が空かを返す。
func (s *recipientSet) isEmpty() bool { return len(s.order) == 0 }

// ids は挿入順のID一覧を返す。
func (s *recipientSet) ids() []string {
	result := make([]string, len(s.order))
	copy(result, s.order)
	return result
}
