package notification

import (
	"strings"

	"github.com/LemuelVelez/thesis-grader/pkg/payload"
)

// Detail は通知本文に含める項目（ラベルと値の組）。
type Detail struct {
	// Label は項目の表示ラベル。
	Label string `json:"label"`
	// Value は項目の値。
	Value string `json:"value"`
}

// Content はContent Builderが生成する通知内容。
type Content struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Summary は通知の要約文。
	Summary string `json:"summary"`
	// FormalSubject はメール等の正式な件名。
	FormalSubject string `json:"formal_subject"`
	// FormalMessage は要約とdetailsを結合した正式な本文。
	FormalMessage string `json:"formal_message"`
	// Details は含められた項目の一覧。
	Details []Detail `json:"details"`
}

// templateCopy はテンプレートごとの固定文面。
type templateCopy struct {
	// title は通知タイトル。
	title string
	// summary は要約文。
	summary string
	// formalSubject は正式な件名。
	formalSubject string
}

// copyByType はテンプレートIDごとの固定文面のカタログ。
var copyByType = map[payload.Type]templateCopy{
	payload.TypeDefenseScheduleCreated: {
		title:         "審査スケジュール確定",
		summary:       "論文審査のスケジュールが確定しました。",
		formalSubject: "論文審査スケジュール確定のお知らせ",
	},
	payload.TypeDefenseScheduleUpdated: {
		title:         "審査スケジュール変更",
		summary:       "論文審査のスケジュールが変更されました。最新の内容をご確認ください。",
		formalSubject: "論文審査スケジュール変更のお知らせ",
	},
	payload.TypeEvaluationSubmitted: {
		title:         "審査評価の提出",
		summary:       "論文審査の評価が提出されました。",
		formalSubject: "審査評価提出のお知らせ",
	},
	payload.TypeGroupMembershipChanged: {
		title:         "グループ構成の変更",
		summary:       "論文グループの構成が変更されました。",
		formalSubject: "論文グループ構成変更のお知らせ",
	},
	payload.TypeGeneralAnnouncement: {
		title:         "お知らせ",
		summary:       "事務局からのお知らせがあります。",
		formalSubject: "事務局からのお知らせ",
	},
}

// BuildContent はテンプレート・解決済みコンテキスト・includeフィールドから
// 通知内容を組み立てる純粋関数。
//
// 同一の入力に対して常にバイト単位で同一の出力を返す。detailsの並び順は
// includeFieldOrderの正規順序に従い、時刻は一切参照しない。
func BuildContent(tmpl Template, resolved ResolvedContext, includes []IncludeField) Content {
	copySet := copyByType[tmpl.DefaultType]

	requested := make(map[IncludeField]struct{}, len(includes))
	for _, f := range includes {
		if tmpl.AllowsInclude(f) {
			requested[f] = struct{}{}
		}
	}

	details := make([]Detail, 0, len(requested))
	for _, f := range includeFieldOrder {
		if _, ok := requested[f]; !ok {
			continue
		}
		value, ok := resolved[f]
		if !ok || value == "" {
			continue
		}
		details = append(details, Detail{Label: includeFieldLabels[f], Value: value})
	}

	var b strings.Builder
	b.WriteString(copySet.summary)
	if len(details) > 0 {
		b.WriteString("\n")
		for _, d := range details {
			b.WriteString("\n")
			b.WriteString(d.Label)
			b.WriteString(": ")
			b.WriteString(d.Value)
		}
	}

	return Content{
		Title:         copySet.title,
		Summary:       copySet.summary,
		FormalSubject: copySet.formalSubject,
		FormalMessage: b.String(),
		Details:       details,
	}
}
