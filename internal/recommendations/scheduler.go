package recommendations

import (
	"context"
	"time"

	"github.com/armysmp/storefront/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	WarmSchedule = "@every 10m"
	warmTimeout  = 2 * time.Minute
)

// Warmer keeps the default trending cache entry fresh
type Warmer struct {
	cron    *cron.Cron
	service *Service
}

// NewWarmer schedules WarmTrending on schedule
func NewWarmer(service *Service, schedule string) (*Warmer, error) {
	w := &Warmer{cron: cron.New(), service: service}
	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	start := time.Now()
	if err := w.service.WarmTrending(ctx); err != nil {
		logger.Error("Trending warmup failed", zap.Error(err))
		return
	}
	logger.Debug("Trending cache warmed", zap.Duration("took", time.Since(start)))
}

// Start warms once and then runs on schedule
func (w *Warmer) Start() {
	go w.run()
	w.cron.Start()
	logger.Info("Trending warmer started", zap.Int("entries", len(w.cron.Entries())))
}

// Stop waits for a running warmup to finish
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	logger.Info("Trending warmer stopped")
}
