package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Watcher drives the periodic alert evaluation pass. It runs
// independently of request handling and is stopped on shutdown.
type Watcher struct {
	cron     *cron.Cron
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

func NewWatcher(service *Service, interval time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		cron:     cron.New(),
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

func (w *Watcher) Start() error {
	_, err := w.cron.AddFunc(fmt.Sprintf("@every %s", w.interval), w.runPass)
	if err != nil {
		return fmt.Errorf("schedule alert pass: %w", err)
	}
	w.cron.Start()
	w.logger.Info("alert watcher started", zap.Duration("interval", w.interval))
	return nil
}

// Stop ждет завершения текущего прохода
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("alert watcher stopped")
}

func (w *Watcher) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Сбои прохода логируются и никогда не роняют планировщик
	if err := w.service.EvaluateAll(ctx); err != nil {
		w.logger.Error("alert evaluation pass failed", zap.Error(err))
	}
}
