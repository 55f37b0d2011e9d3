package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yshimura/magfeed/internal/metrics"
	"github.com/yshimura/magfeed/internal/model"
	"github.com/yshimura/magfeed/internal/repository"
)

// claimBatchSize は1サイクルで審査対象として取得する最大件数。
const claimBatchSize = 50

// Scheduler は審査待ちペーパーのスケジューリングと並列制御を行う。
// ティッカーで審査対象を取得し、semaphoreパターンで
// 最大並列数を制御しながら審査を実行する。
type Scheduler struct {
	paperRepo      repository.PaperRepository
	reviewer       ReviewerService
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	paperRepo repository.PaperRepository,
	reviewer ReviewerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		paperRepo:      paperRepo,
		reviewer:       reviewer,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("review scheduler started",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("review cycle failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("review scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("review cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は審査待ちペーパーを1回取得し、並列で審査を実行する。
// 取得はFOR UPDATE SKIP LOCKEDで行うため、複数ワーカーの同時実行でも重複しない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	papers, err := s.paperRepo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return err
	}

	if len(papers) == 0 {
		return nil
	}

	s.logger.Info("review cycle started",
		slog.Int("paper_count", len(papers)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, paper := range papers {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(p *model.Paper) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.reviewOne(ctx, p); err != nil {
				s.logger.Error("paper review failed",
					slog.String("paper_id", p.ID),
					slog.String("error", err.Error()),
				)
			}
		}(paper)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("review cycle completed",
		slog.Int("paper_count", len(papers)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// reviewOne は1件のペーパーを審査し、判定結果を保存する。
func (s *Scheduler) reviewOne(ctx context.Context, p *model.Paper) error {
	decision, err := s.reviewer.Review(ctx, p)
	if err != nil {
		return err
	}

	if err := s.paperRepo.UpdateStatus(ctx, p.ID, decision.Status); err != nil {
		return err
	}

	if s.collector != nil {
		s.collector.RecordReviewResult(string(decision.Status))
	}

	if decision.Status == model.ReviewStatusRejected {
		s.logger.Info("paper rejected",
			slog.String("paper_id", p.ID),
			slog.String("reason", decision.Reason),
		)
	}

	return nil
}
