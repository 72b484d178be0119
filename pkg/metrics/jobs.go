package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Jobs records maintenance job runs.
type Jobs struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	affected *prometheus.CounterVec
}

func NewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		return &Jobs{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	affected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_rows_affected_total",
		Help: "Rows changed by maintenance jobs.",
	}, []string{"job"})
	reg.MustRegister(runs, duration, affected)
	return &Jobs{runs: runs, duration: duration, affected: affected}
}

// Finished records one job run. affected is ignored when err is set.
func (j *Jobs) Finished(job string, affected int64, err error, d time.Duration) {
	if j == nil || j.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := resultOK
	if err != nil {
		result = resultError
	}
	j.runs.WithLabelValues(job, result).Inc()
	j.duration.WithLabelValues(job).Observe(d.Seconds())
	if err == nil && affected > 0 {
		j.affected.WithLabelValues(job).Add(float64(affected))
	}
}
