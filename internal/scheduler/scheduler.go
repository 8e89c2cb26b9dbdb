package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"PricePilot/internal/evaluator"
)

// Scheduler drives the periodic evaluation pass and the periodic market
// broadcast on independent cron schedules. Runs are fire-and-forget: a slow
// or failed run never blocks or cancels the next tick, and overlapping runs
// are permitted (the evaluator's conditional trigger-marking keeps them safe).
type Scheduler struct {
	Cron      *cron.Cron
	Evaluator *evaluator.Evaluator
	Ctx       context.Context
}

// NewScheduler creates a Scheduler.
func NewScheduler(ctx context.Context, ev *evaluator.Evaluator) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Evaluator: ev,
		Ctx:       ctx,
	}
}

// Register registers the evaluation and broadcast jobs.
func (s *Scheduler) Register(evalCron, broadcastCron string) error {
	if _, err := s.Cron.AddFunc(evalCron, s.evalTask); err != nil {
		return fmt.Errorf("register evaluation task: %w", err)
	}
	if _, err := s.Cron.AddFunc(broadcastCron, s.broadcastTask); err != nil {
		return fmt.Errorf("register broadcast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunEvaluationNow executes an evaluation pass immediately, optionally with
// a manual price override (used by /forcerun and RUN_ON_START).
func (s *Scheduler) RunEvaluationNow(override *evaluator.Override) {
	s.runEvaluation(override)
}

func (s *Scheduler) evalTask() {
	log.Println("[INFO] running scheduled price check")
	s.runEvaluation(nil)
}

func (s *Scheduler) runEvaluation(override *evaluator.Override) {
	fired, err := s.Evaluator.RunPass(s.Ctx, override)
	if err != nil {
		log.Printf("[ERROR] evaluation pass: %v", err)
		return
	}
	if len(fired) > 0 {
		log.Printf("[INFO] evaluation pass triggered %d alert(s)", len(fired))
	}
}

func (s *Scheduler) broadcastTask() {
	log.Println("[INFO] running scheduled market broadcast")
	if err := s.Evaluator.Broadcast(s.Ctx); err != nil {
		log.Printf("[ERROR] market broadcast: %v", err)
	}
}
