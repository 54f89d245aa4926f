package notification

// TargetMode は宛先ルールの種類。
type TargetMode string

const (
	// TargetModeUsers は明示的に指定されたユーザー集合を宛先とする。
	TargetModeUsers TargetMode = "users"
	// TargetModeRole は指定ロールを持つ全ユーザーを宛先とする。
	TargetModeRole TargetMode = "role"
	// TargetModeGroup は論文グループの関係者を宛先とする。
	TargetModeGroup TargetMode = "group"
	// TargetModeSchedule は審査スケジュールの関係者を宛先とする。
	TargetModeSchedule TargetMode = "schedule"
)

// targetModes は宛先ルールの全種類。カタログAPIで返す。
var targetModes = []TargetMode{TargetModeUsers, TargetModeRole, TargetModeGroup, TargetModeSchedule}

// Target は通知の宛先ルール。modeに応じて有効になるフィールドが決まる。
// Validateを通過したTargetのみが宛先解決に渡される。
type Target struct {
	// Mode は宛先ルールの種類。
	Mode TargetMode `json:"mode"`
	// UserIDs はmode=usersのときの宛先ユーザーID集合。
	UserIDs []string `json:"user_ids,omitempty"`
	// Role はmode=roleのときの対象ロール。
	Role string `json:"role,omitempty"`
	// GroupID はmode=groupのときの論文グループID。
	GroupID string `json:"group_id,omitempty"`
	// ScheduleID はmode=scheduleのときの審査スケジュールID。
	ScheduleID string `json:"schedule_id,omitempty"`
	// IncludeAdviser はmode=groupのとき指導教員を含めるか。
	IncludeAdviser bool `json:"include_adviser,omitempty"`
	// IncludeStudents はmode=group / mode=scheduleのとき学生メンバーを含めるか。
	IncludeStudents bool `json:"include_students,omitempty"`
	// IncludePanelists はmode=scheduleのとき審査委員を含めるか。
	IncludePanelists bool `json:"include_panelists,omitempty"`
	// IncludeCreator はmode=scheduleのときスケジュール作成者を含めるか。
	IncludeCreator bool `json:"include_creator,omitempty"`
}

// Validate は宛先ルールの整合性を検証する。
// modeが不明な場合、またはmodeに必要なフィールドが欠けている場合はValidationErrorを返す。
func (t Target) Validate() error {
	switch t.Mode {
	case TargetModeUsers:
		if len(t.UserIDs) == 0 {
			return newValidationErrorf("mode=usersにはuser_idsの指定が必要です")
		}
	case TargetModeRole:
		if t.Role == "" {
			return newValidationErrorf("mode=roleにはroleの指定が必要です")
		}
	case TargetModeGroup:
		if t.GroupID == "" {
			return newValidationErrorf("mode=groupにはgroup_idの指定が必要です")
		}
		if !t.IncludeAdviser && !t.IncludeStudents {
			return newValidationErrorf("mode=groupでは指導教員か学生メンバーの少なくとも一方を含める必要があります")
		}
	case TargetModeSchedule:
		if t.ScheduleID == "" {
			return newValidationErrorf("mode=scheduleにはschedule_idの指定が必要です")
		}
		if !t.IncludeStudents && !t.IncludePanelists && !t.IncludeCreator {
			return newValidationErrorf("mode=scheduleでは学生・審査委員・作成者の少なくとも一つを含める必要があります")
		}
	default:
		return newValidationErrorf("不明な宛先モードです: %s", t.Mode)
	}
	return nil
}
