package notification

import (
	"context"
	"errors"
	"testing"
)

// assertRecipients は受信者IDの一覧を順序付きで比較する。
func assertRecipients(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("受信者数 = %d, want %d: got=%v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("recipients[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestRecipientResolverResolve はRecipientResolver.Resolveを検証する。
func TestRecipientResolverResolve(t *testing.T) {
	t.Parallel()

	t.Run("users: 重複が排除され無効化ユーザーが除外されること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode:    TargetModeUsers,
			UserIDs: []string{"student-1", "student-1", "student-3", "student-2"},
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		// student-3は無効化されているため除外される
		assertRecipients(t, recipients, []string{"student-1", "student-2"})
	})

	t.Run("users: ディレクトリ未登録のユーザーは信頼して含めること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode:    TargetModeUsers,
			UserIDs: []string{"external-user", "student-1"},
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		assertRecipients(t, recipients, []string{"external-user", "student-1"})
	})

	t.Run("role: 指定ロールの有効なユーザーのみが解決されること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode: TargetModeRole,
			Role: "student",
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		if len(recipients) != 2 {
			t.Fatalf("受信者数 = %d, want 2: %v", len(recipients), recipients)
		}
		for _, id := range recipients {
			if id == "student-3" {
				t.Error("無効化ユーザーstudent-3は除外されるべき")
			}
		}
	})

	t.Run("group: 指導教員と学生メンバーが解決されること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode:            TargetModeGroup,
			GroupID:         "group-1",
			IncludeAdviser:  true,
			IncludeStudents: true,
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		// student-3は無効化されているため除外される
		assertRecipients(t, recipients, []string{"adviser-1", "student-1", "student-2"})
	})

	t.Run("group: 宛先グループが存在しない場合NotFoundErrorが返ること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		_, err := resolver.Resolve(context.Background(), Target{
			Mode:            TargetModeGroup,
			GroupID:         "no-such-group",
			IncludeStudents: true,
		})

		var notFoundErr *NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Fatalf("NotFoundErrorが返るべき: %v", err)
		}
	})

	t.Run("schedule: 学生・審査委員・作成者がひとまとめに解決されること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode:             TargetModeSchedule,
			ScheduleID:       "schedule-1",
			IncludeStudents:  true,
			IncludePanelists: true,
			IncludeCreator:   true,
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		assertRecipients(t, recipients, []string{
			"student-1", "student-2", "panelist-1", "panelist-2", "coordinator-1",
		})
	})

	t.Run("schedule: 審査委員が作成者を兼ねる場合も重複しないこと", func(t *testing.T) {
		t.Parallel()

		registry := newFakeRegistry()
		schedule := registry.schedules["schedule-1"]
		schedule.CreatedBy = "panelist-1"
		registry.schedules["schedule-1"] = schedule

		resolver := NewRecipientResolver(registry.collaborators())
		recipients, err := resolver.Resolve(context.Background(), Target{
			Mode:             TargetModeSchedule,
			ScheduleID:       "schedule-1",
			IncludePanelists: true,
			IncludeCreator:   true,
		})
		if err != nil {
			t.Fatalf("Resolve()でエラーが発生: %v", err)
		}

		assertRecipients(t, recipients, []string{"panelist-1", "panelist-2"})
	})

	t.Run("解決結果が空の場合EmptyRecipientSetErrorが返ること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		_, err := resolver.Resolve(context.Background(), Target{
			Mode:    TargetModeUsers,
			UserIDs: []string{"student-3"}, // 無効化ユーザーのみ
		})

		var emptyErr *EmptyRecipientSetError
		if !errors.As(err, &emptyErr) {
			t.Fatalf("EmptyRecipientSetErrorが返るべき: %v", err)
		}
	})

	t.Run("不正な宛先ルールでValidationErrorが返ること", func(t *testing.T) {
		t.Parallel()

		resolver := NewRecipientResolver(newFakeRegistry().collaborators())
		_, err := resolver.Resolve(context.Background(), Target{Mode: TargetModeRole})

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("ValidationErrorが返るべき: %v", err)
		}
	})
}
