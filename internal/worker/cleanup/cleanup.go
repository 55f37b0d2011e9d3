// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと、保持期間（デフォルト30日）を超過した
// 却下済みペーパーを日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/yshimura/magfeed/internal/repository"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Job は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	db            Executor
	sessionRepo   repository.SessionRepository
	logger        *slog.Logger
	RetentionDays int // 却下済みペーパーの保持日数（デフォルト: 30）
}

// NewJob は新しいJobを生成する。デフォルトの保持日数は30日。
func NewJob(db Executor, sessionRepo repository.SessionRepository, logger *slog.Logger) *Job {
	return &Job{
		db:            db,
		sessionRepo:   sessionRepo,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は期限切れセッションと古い却下済みペーパーを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	expiredSessions, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("failed to delete expired sessions",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗しました: %w", err)
	}

	// 保持期間を超過した却下済みペーパーを削除する。
	// コメント・いいね・スターはCASCADE削除により自動的に削除される。
	interval := fmt.Sprintf("%d days", j.RetentionDays)
	query := `DELETE FROM papers WHERE status = 'rejected' AND updated_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("failed to delete rejected papers",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("却下済みペーパーの削除に失敗しました: %w", err)
	}

	deletedPapers, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("cleanup job completed",
		slog.Int64("expired_sessions", expiredSessions),
		slog.Int64("deleted_papers", deletedPapers),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("cleanup job started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup job stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
