// Package reconcile は非正規化カウンタの再集計ジョブを提供する。
// いいね・スター・コメントの各カウンタは書き込み時にトランザクション内で
// 増減されるが、障害時のずれを補正するため定期的に関係テーブルから再計算する。
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/repository"
)

// Job はカウンタ再集計の定期ジョブ。冪等な上書き処理を保証する。
type Job struct {
	recounter   repository.EngagementRecounter
	collector   metrics.MetricsCollector
	logger      *slog.Logger
	maxPerCycle int
}

// NewJob はJobの新しいインスタンスを生成する。
// maxPerCycleが0以下の場合はデフォルト値500を使用する。
func NewJob(
	recounter repository.EngagementRecounter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxPerCycle int,
) *Job {
	if maxPerCycle <= 0 {
		maxPerCycle = 500
	}
	return &Job{
		recounter:   recounter,
		collector:   collector,
		logger:      logger,
		maxPerCycle: maxPerCycle,
	}
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("reconcile job started",
		slog.Duration("interval", interval),
		slog.Int("max_per_cycle", j.maxPerCycle),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("reconcile job stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("reconcile cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Run はカウンタの再集計を1回実行する。
// 更新対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	updated, err := j.recounter.RecountEngagement(ctx, j.maxPerCycle)
	if err != nil {
		return err
	}

	if j.collector != nil && updated > 0 {
		j.collector.RecordCountersReconciled(updated)
	}

	duration := time.Since(start)
	j.logger.Info("reconcile cycle completed",
		slog.Int("updated_count", updated),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
