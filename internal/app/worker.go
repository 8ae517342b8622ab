package app

import (
	"context"
	"time"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/analysis"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

const workerPollInterval = 1 * time.Second

// JobWorker drains the ingestion and analysis queues. Each tick claims at
// most one pending job of each kind and runs it inline, so a slow document
// never starves analysis jobs and vice versa.
type JobWorker struct {
	log *logger.Logger

	ingestionJobs repos.IngestionJobRepo
	analysisJobs  repos.AnalysisJobRepo
	ingestion     ingestion.Service
	analysis      analysis.Service
}

func NewJobWorker(baseLog *logger.Logger, reposet Repos, services Services) *JobWorker {
	return &JobWorker{
		log:           baseLog.With("worker", "JobWorker"),
		ingestionJobs: reposet.IngestionJob,
		analysisJobs:  reposet.AnalysisJob,
		ingestion:     services.Ingestion,
		analysis:      services.Analysis,
	}
}

func (w *JobWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(workerPollInterval)
		defer ticker.Stop()
		w.log.Info("Job worker started", "poll_interval", workerPollInterval.String())
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Job worker stopped")
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

// tick runs one claim attempt per queue. Failures inside a claimed job are
// already written onto the job row, so here they only get a log line.
func (w *JobWorker) tick(ctx context.Context) {
	job, err := w.ingestionJobs.ClaimNextPending(ctx, nil)
	if err != nil {
		w.log.Warn("claim ingestion job failed", "error", err)
	} else if job != nil {
		if _, err := w.ingestion.IngestClaimed(ctx, job); err != nil {
			w.log.Warn("ingestion job failed", "job_id", job.ID, "error", err)
		}
	}

	task, err := w.analysisJobs.ClaimNextPending(ctx, nil)
	if err != nil {
		w.log.Warn("claim analysis job failed", "error", err)
	} else if task != nil {
		if err := w.analysis.RunClaimed(ctx, task); err != nil {
			w.log.Warn("analysis job failed", "job_id", task.ID, "error", err)
		}
	}
}
