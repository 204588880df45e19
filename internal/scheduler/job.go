package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job is a unit of work run on a cron schedule
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one attempt; the context carries the per-attempt timeout
	Run(ctx context.Context) error

	// Schedule returns a cron expression with seconds, e.g. "0 */5 * * * *" or "@hourly"
	Schedule() string
}

// JobResult is the outcome of one run (all retry attempts included)
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the most recent results of one job. Safe for concurrent use.
type JobHistory struct {
	mu      sync.RWMutex
	results []JobResult
}

// Add appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) Add(result JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, result)
	if len(h.results) > maxHistory {
		h.results = append([]JobResult(nil), h.results[len(h.results)-maxHistory:]...)
	}
}

// Len returns the number of stored results
func (h *JobHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n = min(n, len(h.results))
	if n <= 0 {
		return []JobResult{}
	}
	return append([]JobResult(nil), h.results[len(h.results)-n:]...)
}

// Failed returns every stored failure
func (h *JobHistory) Failed() []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	failed := make([]JobResult, 0)
	for _, result := range h.results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// SuccessRate returns the share of successful runs (0 when empty)
func (h *JobHistory) SuccessRate() float64 {
	return h.Stats("").SuccessRate
}

// JobStats summarizes a job's history (/health 응답에 포함)
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Stats computes the summary in a single pass under the read lock
func (h *JobHistory) Stats(schedule string) JobStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := JobStats{Schedule: schedule, TotalRuns: len(h.results)}
	for i := range h.results {
		r := &h.results[i]
		stats.JobName = r.JobName
		stats.LastRun = &r.StartTime
		if r.Success {
			stats.SuccessCount++
			stats.LastSuccess = &r.StartTime
		} else {
			stats.FailureCount++
			stats.LastFailure = &r.StartTime
			stats.LastError = r.Error
		}
	}
	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRuns)
	}

	// 포인터가 내부 슬라이스를 가리키지 않도록 복사
	stats.LastRun = copyTime(stats.LastRun)
	stats.LastSuccess = copyTime(stats.LastSuccess)
	stats.LastFailure = copyTime(stats.LastFailure)
	return stats
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
