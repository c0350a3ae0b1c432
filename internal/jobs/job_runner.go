package jobs

import (
	"context"

	"sectland-backend/internal/config"
	"sectland-backend/internal/debt"
	"sectland-backend/internal/logger"
	"sectland-backend/internal/repository"
	"sectland-backend/internal/service"
)

// JobRunner coordinates the scheduled maintenance work
type JobRunner struct {
	sects  repository.SectRepository
	land   service.LandService
	stats  *Stats
	config *config.Config
}

// NewJobRunner creates a job runner with all dependencies
func NewJobRunner(sects repository.SectRepository, land service.LandService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		sects:  sects,
		land:   land,
		stats:  NewStats(),
		config: cfg,
	}
}

// Config exposes the loaded configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Stats exposes the accumulated maintenance counters
func (jr *JobRunner) Stats() *Stats {
	return jr.stats
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// ProcessMaintenanceFees runs one maintenance pass over every sect holding
// territory. A failure on one sect is logged and counted, never fatal to
// the pass.
func (jr *JobRunner) ProcessMaintenanceFees() {
	jr.runWithRecovery("ProcessMaintenanceFees", func() {
		ctx := context.Background()
		jr.stats.TickStarted()

		sects, err := jr.sects.ListWithTerritory(ctx)
		if err != nil {
			logger.Error("Failed to list sects with territory", "error", err)
			jr.stats.ErrorRecorded(0, err.Error())
			return
		}

		log := logger.WithJob("ProcessMaintenanceFees")
		charged := 0
		for _, sect := range sects {
			outcome, err := jr.land.ProcessMaintenance(ctx, sect.ID)
			if err != nil {
				log.Error("Maintenance pass failed for sect",
					"sect_id", sect.ID, "sect_name", sect.Name, "error", err)
				jr.stats.ErrorRecorded(sect.ID, err.Error())
				continue
			}
			jr.stats.SectProcessed()
			if outcome.Skipped {
				continue
			}

			if outcome.Charged {
				charged++
				jr.stats.PaymentCollected(outcome.Amount)
			}
			switch outcome.Action {
			case debt.ActionWarned:
				jr.stats.OverdueRecorded()
			case debt.ActionFrozen:
				jr.stats.FreezeRecorded()
			case debt.ActionForfeited:
				jr.stats.ForfeitureRecorded()
				log.Warn("Territory forfeited during maintenance pass",
					"sect_id", sect.ID, "sect_name", sect.Name)
			}
		}

		log.Info("Maintenance pass finished",
			"sects_scanned", len(sects),
			"fees_collected", charged)
	})
}

// RunAllHourlyJobs runs the hourly job set (for manual execution)
func (jr *JobRunner) RunAllHourlyJobs() {
	jr.ProcessMaintenanceFees()
}
