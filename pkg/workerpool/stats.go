package workerpool

import (
	"sync/atomic"
	"time"
)

// Stats contains pool statistics
type Stats struct {
	Workers        int           `json:"workers"`
	QueuedTasks    int           `json:"queued_tasks"`
	CompletedTasks int64         `json:"completed_tasks"`
	FailedTasks    int64         `json:"failed_tasks"`
	RejectedTasks  int64         `json:"rejected_tasks"`
	AverageLatency time.Duration `json:"average_latency"`
	Uptime         time.Duration `json:"uptime"`
}

type statsCollector struct {
	workers        atomic.Int32
	completedTasks atomic.Int64
	failedTasks    atomic.Int64
	rejectedTasks  atomic.Int64
	totalLatency   atomic.Int64 // in nanoseconds
	startTime      time.Time
}

func newStatsCollector() *statsCollector {
	return &statsCollector{startTime: time.Now()}
}

func (s *statsCollector) snapshot(queueLen int) Stats {
	completed := s.completedTasks.Load()
	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(s.totalLatency.Load() / completed)
	}
	return Stats{
		Workers:        int(s.workers.Load()),
		QueuedTasks:    queueLen,
		CompletedTasks: completed,
		FailedTasks:    s.failedTasks.Load(),
		RejectedTasks:  s.rejectedTasks.Load(),
		AverageLatency: avg,
		Uptime:         time.Since(s.startTime),
	}
}

func (s *statsCollector) recordCompletion(d time.Duration, failed bool) {
	s.completedTasks.Add(1)
	s.totalLatency.Add(int64(d))
	if failed {
		s.failedTasks.Add(1)
	}
}
