package notification

import (
	"strings"
	"testing"
)

// TestBuildContent はContent Builderの出力を検証する。
func TestBuildContent(t *testing.T) {
	t.Parallel()

	t.Run("同一入力に対して常に同一の出力が返ること", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("defense_schedule_updated")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}
		resolved := ResolvedContext{
			IncludeGroupTitle:       "分散キャッシュの一貫性に関する研究",
			IncludeScheduleDatetime: "2026-03-01 10:00",
			IncludeScheduleRoom:     "A-301",
		}
		includes := []IncludeField{IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom}

		first := BuildContent(tmpl, resolved, includes)
		second := BuildContent(tmpl, resolved, includes)

		if first.FormalMessage != second.FormalMessage {
			t.Errorf("FormalMessageが一致しない:\n1回目: %q\n2回目: %q", first.FormalMessage, second.FormalMessage)
		}
		if first.Title != second.Title || first.FormalSubject != second.FormalSubject {
			t.Error("タイトルと件名は決定的であるべき")
		}
	})

	t.Run("detailsがincludeフィールドの正規順序で並ぶこと", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("defense_schedule_updated")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}
		resolved := ResolvedContext{
			IncludeGroupTitle:       "卒業研究A",
			IncludeScheduleDatetime: "2026-03-01 10:00",
			IncludeScheduleRoom:     "A-301",
		}

		// 指定順を逆にしても出力順は正規順序に従う
		content := BuildContent(tmpl, resolved, []IncludeField{
			IncludeScheduleRoom, IncludeScheduleDatetime, IncludeGroupTitle,
		})

		wantLabels := []string{"論文グループ", "審査日時", "審査会場"}
		if len(content.Details) != len(wantLabels) {
			t.Fatalf("details数 = %d, want %d", len(content.Details), len(wantLabels))
		}
		for i, want := range wantLabels {
			if content.Details[i].Label != want {
				t.Errorf("details[%d].Label = %q, want %q", i, content.Details[i].Label, want)
			}
		}
	})

	t.Run("値が空のフィールドは省略されること", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("defense_schedule_created")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}
		resolved := ResolvedContext{
			IncludeGroupTitle:       "卒業研究B",
			IncludeScheduleDatetime: "2026-03-02 13:00",
			// 会場は未解決
		}

		content := BuildContent(tmpl, resolved, []IncludeField{
			IncludeGroupTitle, IncludeScheduleDatetime, IncludeScheduleRoom,
		})

		if len(content.Details) != 2 {
			t.Fatalf("details数 = %d, want 2", len(content.Details))
		}
		if strings.Contains(content.FormalMessage, "審査会場") {
			t.Errorf("未解決のフィールドは本文に含まれないべき: %q", content.FormalMessage)
		}
	})

	t.Run("許可されていないフィールドは黙って無視されること", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("group_membership_changed")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}
		resolved := ResolvedContext{
			IncludeGroupTitle:       "卒業研究C",
			IncludeEvaluationStatus: "submitted",
		}

		content := BuildContent(tmpl, resolved, []IncludeField{
			IncludeGroupTitle, IncludeEvaluationStatus,
		})

		if len(content.Details) != 1 {
			t.Fatalf("details数 = %d, want 1", len(content.Details))
		}
		if content.Details[0].Label != "論文グループ" {
			t.Errorf("details[0].Label = %q, want 論文グループ", content.Details[0].Label)
		}
	})

	t.Run("detailsが無い場合は本文が要約文のみとなること", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("general_announcement")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}

		content := BuildContent(tmpl, ResolvedContext{}, nil)

		if content.FormalMessage != content.Summary {
			t.Errorf("FormalMessage = %q, want 要約文のみ %q", content.FormalMessage, content.Summary)
		}
		if len(content.Details) != 0 {
			t.Errorf("details数 = %d, want 0", len(content.Details))
		}
	})

	t.Run("本文にラベルと値が行単位で含まれること", func(t *testing.T) {
		t.Parallel()

		tmpl, err := GetTemplate("defense_schedule_updated")
		if err != nil {
			t.Fatalf("テンプレートの取得に失敗: %v", err)
		}
		resolved := ResolvedContext{
			IncludeScheduleDatetime: "2026-03-01 10:00",
			IncludeScheduleRoom:     "A-301",
		}

		content := BuildContent(tmpl, resolved, []IncludeField{
			IncludeScheduleDatetime, IncludeScheduleRoom,
		})

		if !strings.Contains(content.FormalMessage, "審査日時: 2026-03-01 10:00") {
			t.Errorf("本文に審査日時の行が含まれるべき: %q", content.FormalMessage)
		}
		if !strings.Contains(content.FormalMessage, "審査会場: A-301") {
			t.Errorf("本文に審査会場の行が含まれるべき: %q", content.FormalMessage)
		}
		if !strings.HasPrefix(content.FormalMessage, content.Summary) {
			t.Errorf("本文は要約文で始まるべき: %q", content.FormalMessage)
		}
	})
}
