// Package review は投稿ペーパーのバックグラウンド審査処理を提供する。
// スケジューラと審査ルールを含む。
package review

import (
	"context"
	"strings"

	"github.com/yshimura/magfeed/internal/model"
)

// Decision は審査の判定結果。
type Decision struct {
	Status model.ReviewStatus // ReviewStatusPublished または ReviewStatusRejected
	Reason string             // 却下時の理由
}

// ReviewerService はペーパー審査の実行インターフェース。
type ReviewerService interface {
	// Review は1件のペーパーを審査し、判定結果を返す。
	Review(ctx context.Context, paper *model.Paper) (Decision, error)
}

// RuleReviewer はルールベースの審査実装。
// 禁止語を含むペーパーを却下し、それ以外を公開する。
type RuleReviewer struct {
	bannedWords []string
}

// NewRuleReviewer はRuleReviewerの新しいインスタンスを生成する。
func NewRuleReviewer(bannedWords []string) *RuleReviewer {
	return &RuleReviewer{bannedWords: bannedWords}
}

// Review はタイトルと説明文を禁止語リストと照合して判定する。
func (r *RuleReviewer) Review(ctx context.Context, paper *model.Paper) (Decision, error) {
	text := strings.ToLower(paper.Title + " " + paper.Description)
	for _, word := range r.bannedWords {
		if word == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(word)) {
			return Decision{
				Status: model.ReviewStatusRejected,
				Reason: "禁止語を含んでいます: " + word,
			}, nil
		}
	}
	return Decision{Status: model.ReviewStatusPublished}, nil
}

// compile-time interface check
var _ ReviewerService = (*RuleReviewer)(nil)
