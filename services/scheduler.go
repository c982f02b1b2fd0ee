package services

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"

	"github.com/ucfc/fulfillment-app/utils"
)

// Scheduler runs the periodic queue drains. Each channel worker gets its own
// cron entry so SMS and push retain independent schedules and failure modes.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Register adds one worker drain under the given cron schedule (e.g.
// "@every 5m").
func (s *Scheduler) Register(schedule string, worker *DeliveryWorker) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := worker.Drain(context.Background()); err != nil {
			if errors.Is(err, ErrChannelUnavailable) {
				// Degraded mode: tasks keep accumulating as pending.
				utils.InfoLogger.Printf("%s channel unconfigured, skipping drain", worker.provider.Channel())
				return
			}
			utils.ErrorLogger.Printf("%s drain failed: %v", worker.provider.Channel(), err)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	utils.InfoLogger.Println("Notification drain scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
