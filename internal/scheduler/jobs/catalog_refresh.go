package jobs

import (
	"context"

	"github.com/wonny/copilot/pkg/logger"
)

// CatalogRefresher reloads the sector catalog (advisor.Service)
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (bool, error)
}

// CatalogRefreshJob picks up edits to the catalog file without a restart
type CatalogRefreshJob struct {
	refresher CatalogRefresher
	schedule  string
	logger    *logger.Logger
}

// NewCatalogRefreshJob creates a new catalog refresh job
func NewCatalogRefreshJob(refresher CatalogRefresher, schedule string, log *logger.Logger) *CatalogRefreshJob {
	if schedule == "" {
		schedule = "0 */5 * * * *" // Every 5 minutes
	}
	return &CatalogRefreshJob{
		refresher: refresher,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *CatalogRefreshJob) Name() string {
	return "catalog_refresh"
}

// Schedule returns the cron schedule
func (j *CatalogRefreshJob) Schedule() string {
	return j.schedule
}

// Run reloads the catalog if the file changed
func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	reloaded, err := j.refresher.RefreshCatalog(ctx)
	if err != nil {
		return err
	}

	if reloaded {
		j.logger.Info("Sector catalog reloaded by scheduler")
	}

	return nil
}
