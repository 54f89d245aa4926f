package notification

import "fmt"

// ValidationError はテンプレート・宛先・includeフィールドの組み合わせ不正、
// または必須コンテキストの欠落を表す。副作用発生前に呼び出し側へ返す。
type ValidationError struct {
	// Message はエラーの説明。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string { return e.Message }

// newValidationErrorf は書式付きでValidationErrorを生成する。
func newValidationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError は操作権限の不足を表す。
// 他ユーザーの通知の既読操作や、権限のない宛先指定で発生する。
type ForbiddenError struct {
	// Message はエラーの説明。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ForbiddenError) Error() string { return e.Message }

// NotFoundError はテンプレートまたは必須コンテキストエンティティの未存在を表す。
type NotFoundError struct {
	// Message はエラーの説明。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *NotFoundError) Error() string { return e.Message }

// newNotFoundErrorf は書式付きでNotFoundErrorを生成する。
func newNotFoundErrorf(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// EmptyRecipientSetError は宛先解決の結果が空集合だったことを表す。
// 通知レコードは一切作成されない。
type EmptyRecipientSetError struct {
	// Message はエラーの説明。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *EmptyRecipientSetError) Error() string { return e.Message }
