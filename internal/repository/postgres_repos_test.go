package repository

import (
	"testing"

	"github.com/yshimura/magfeed/internal/model"
)

// TestPostgresRepos_ImplementInterfaces は各Postgres実装がインターフェースを満たすことを検証する。
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	// コンパイル時チェック
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ PaperRepository = (*PostgresPaperRepo)(nil)
	var _ EngagementRecounter = (*PostgresPaperRepo)(nil)
	var _ MagazineRepository = (*PostgresMagazineRepo)(nil)
	var _ CommentRepository = (*PostgresCommentRepo)(nil)
	var _ FollowRepository = (*PostgresFollowRepo)(nil)
}

// TestFeedScopeValues はFeedScopeの定数値が正しいことを検証する。
func TestFeedScopeValues(t *testing.T) {
	if model.FeedScopeAll != "all" {
		t.Errorf("FeedScopeAll = %q, want %q", model.FeedScopeAll, "all")
	}
	if model.FeedScopeMagazine != "magazine" {
		t.Errorf("FeedScopeMagazine = %q, want %q", model.FeedScopeMagazine, "magazine")
	}
	if model.FeedScopeAuthor != "author" {
		t.Errorf("FeedScopeAuthor = %q, want %q", model.FeedScopeAuthor, "author")
	}
	if model.FeedScopeStarred != "starred" {
		t.Errorf("FeedScopeStarred = %q, want %q", model.FeedScopeStarred, "starred")
	}
}

// TestReviewStatusValues はReviewStatusの定数値が正しいことを検証する。
func TestReviewStatusValues(t *testing.T) {
	if model.ReviewStatusDraft != "draft" {
		t.Errorf("ReviewStatusDraft = %q, want %q", model.ReviewStatusDraft, "draft")
	}
	if model.ReviewStatusPending != "pending" {
		t.Errorf("ReviewStatusPending = %q, want %q", model.ReviewStatusPending, "pending")
	}
	if model.ReviewStatusPublished != "published" {
		t.Errorf("ReviewStatusPublished = %q, want %q", model.ReviewStatusPublished, "published")
	}
	if model.ReviewStatusRejected != "rejected" {
		t.Errorf("ReviewStatusRejected = %q, want %q", model.ReviewStatusRejected, "rejected")
	}
}
