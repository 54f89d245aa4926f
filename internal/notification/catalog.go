package notification

import (
	"github.com/LemuelVelez/thesis-grader/pkg/payload"
)

// ContextKey は通知が「何について」かを示すコンテキストエンティティの種類。
type ContextKey string

const (
	// ContextKeyEvaluation は審査評価を指すコンテキストキー。
	ContextKeyEvaluation ContextKey = "evaluation_id"
	// ContextKeySchedule は審査スケジュールを指すコンテキストキー。
	ContextKeySchedule ContextKey = "schedule_id"
	// ContextKeyGroup は論文グループを指すコンテキストキー。
	ContextKeyGroup ContextKey = "group_id"
)

// IncludeField は通知本文に含められるコンテキスト由来の項目。
type IncludeField string

const (
	// IncludeGroupTitle は論文グループの題目。
	IncludeGroupTitle IncludeField = "group_title"
	// IncludeGroupProgram は論文グループの所属プログラム。
	IncludeGroupProgram IncludeField = "group_program"
	// IncludeGroupTerm は論文グループの学期。
	IncludeGroupTerm IncludeField = "group_term"
	// IncludeAdviserName は指導教員の氏名。
	IncludeAdviserName IncludeField = "adviser_name"
	// IncludeScheduleDatetime は審査の日時。
	IncludeScheduleDatetime IncludeField = "schedule_datetime"
	// IncludeScheduleRoom は審査の会場。
	IncludeScheduleRoom IncludeField = "schedule_room"
	// IncludePanelistNames は審査委員の氏名一覧。
	IncludePanelistNames IncludeField = "panelist_names"
	// IncludeEvaluatorName は評価者の氏名。
	IncludeEvaluatorName IncludeField = "evaluator_name"
	// IncludeEvaluationStatus は評価の状況。
	IncludeEvaluationStatus IncludeField = "evaluation_status"
)

// includeFieldOrder は通知本文に項目を並べる際の正規順序。
// Content Builderの出力を決定的にするため、マップの順序ではなくこの順序を使う。
var includeFieldOrder = []IncludeField{
	IncludeGroupTitle,
	IncludeGroupProgram,
	IncludeGroupTerm,
	IncludeAdviserName,
	IncludeScheduleDatetime,
	IncludeScheduleRoom,
	IncludePanelistNames,
	IncludeEvaluatorName,
	IncludeEvaluationStatus,
}

// includeFieldLabels は各includeフィールドの表示ラベル。
var includeFieldLabels = map[IncludeField]string{
	IncludeGroupTitle:       "論文グループ",
	IncludeGroupProgram:     "プログラム",
	IncludeGroupTerm:        "学期",
	IncludeAdviserName:      "指導教員",
	IncludeScheduleDatetime: "審査日時",
	IncludeScheduleRoom:     "審査会場",
	IncludePanelistNames:    "審査委員",
	IncludeEvaluatorName:    "評価者",
	IncludeEvaluationStatus: "評価状況",
}

// Template は通知テンプレートの定義。起動時に構築され、以後不変。
type Template struct {
	// ID はテンプレートの一意識別子。通知タイプと一致する。
	ID string
	// DefaultType は作成される通知レコードのタイプ。
	DefaultType payload.Type
	// RequiredContextKeys は送信リクエストで必須となるコンテキストキー。
	RequiredContextKeys []ContextKey
	// AllowedIncludes はこのテンプレートで許可されるincludeフィールド。
	AllowedIncludes []IncludeField
	// DefaultIncludes は呼び出し側が指定しなかった場合に使うincludeフィールド。
	DefaultIncludes []IncludeField
}

// AllowsInclude は指定フィールドがこのテンプレートで許可されているかを返す。
func (t Template) AllowsInclude(f IncludeField) bool {
	for _, allowed := range t.AllowedIncludes {
		if allowed == f {
			return true
		}
	}
	return false
}

// RequiresContext は指定キーがこのテンプレートで必須かを返す。
func (t Template) RequiresContext(k ContextKey) bool {
	for _, required := range t.RequiredContextKeys {
		if required == k {
			return true
		}
	}
	return false
}

// templates は全テンプレートの静的カタログ。プロセス全体で共有する読み取り専用データ。
var templates = []Template{
	{
		ID:                  string(payload.TypeDefenseScheduleCreated),
		DefaultType:         payload.TypeDefenseScheduleCreated,
		RequiredContextKeys: []ContextKey{ContextKeySchedule},
		AllowedIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom, IncludePanelistNames,
		},
		DefaultIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom,
		},
	},
	{
		ID:                  string(payload.TypeDefenseScheduleUpdated),
		DefaultType:         payload.TypeDefenseScheduleUpdated,
		RequiredContextKeys: []ContextKey{ContextKeySchedule},
		AllowedIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom, IncludePanelistNames,
		},
		DefaultIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom,
		},
	},
	{
		ID:                  string(payload.TypeEvaluationSubmitted),
		DefaultType:         payload.TypeEvaluationSubmitted,
		RequiredContextKeys: []ContextKey{ContextKeyEvaluation, ContextKeySchedule},
		AllowedIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeEvaluatorName, IncludeEvaluationStatus,
		},
		DefaultIncludes: []IncludeField{
			IncludeEvaluatorName, IncludeEvaluationStatus,
		},
	},
	{
		ID:                  string(payload.TypeGroupMembershipChanged),
		DefaultType:         payload.TypeGroupMembershipChanged,
		RequiredContextKeys: []ContextKey{ContextKeyGroup},
		AllowedIncludes: []IncludeField{
			IncludeGroupTitle, IncludeGroupProgram, IncludeGroupTerm, IncludeAdviserName,
		},
		DefaultIncludes: []IncludeField{
			IncludeGroupTitle, IncludeAdviserName,
		},
	},
	{
		ID:                  string(payload.TypeGeneralAnnouncement),
		DefaultType:         payload.TypeGeneralAnnouncement,
		RequiredContextKeys: nil,
		AllowedIncludes: []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom,
		},
		DefaultIncludes: nil,
	},
}

// templatesByID はテンプレートIDからの索引。initで構築する。
var templatesByID = func() map[string]Template {
	m := make(map[string]Template, len(templates))
	for _, t := range templates {
		m[t.ID] = t
	}
	return m
}()

// ListTemplates は全テンプレートをカタログ定義順で返す。
func ListTemplates() []Template {
	result := make([]Template, len(templates))
	copy(result, templates)
	return result
}

// GetTemplate はIDでテンプレートを検索する。
// 存在しない場合はNotFoundErrorを返す。
func GetTemplate(id string) (Template, error) {
	t, ok := templatesByID[id]
	if !ok {
		return Template{}, newNotFoundErrorf("テンプレートが見つかりません: %s", id)
	}
	return t, nil
}

// resolveIncludes は呼び出し側指定のincludeフィールドを検証して返す。
// 未指定の場合はテンプレートのデフォルトを返す。
// 許可されていないフィールドが含まれる場合はValidationErrorを返す。
func resolveIncludes(t Template, requested []IncludeField) ([]IncludeField, error) {
	if len(requested) == 0 {
		defaults := make([]IncludeField, len(t.DefaultIncludes))
		copy(defaults, t.DefaultIncludes)
		return defaults, nil
	}

	for _, f := range requested {
		if !t.AllowsInclude(f) {
			return nil, newValidationErrorf("テンプレートで許可されていないincludeフィールドです: %s", f)
		}
	}
	return requested, nil
}
