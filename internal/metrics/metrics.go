// Package metrics defines every Prometheus series csengo exports, in
// the package-level-vars-plus-init-registration style, and the HTTP
// middleware that instruments request handling.
package metrics

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/rs/zerolog/log"
)

const namespace = "csengo"

// driftBuckets spans 1ms to 1h, matching the expected range of
// scheduling drift from a sleeping timer to its actual wakeup.
var driftBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 30.0, 60.0, 300.0, 900.0, 1800.0, 3600.0,
}

// dbBuckets spans 0.1ms to 5s.
var dbBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0,
}

// httpBuckets spans 1ms to 10s.
var httpBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

var (
	BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information with git_ref and db_version labels.",
	}, []string{"git_ref", "db_version"})

	PlaybackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_total",
		Help:      "Total number of playback attempts.",
	}, []string{"status", "task_type", "task_name"})

	PlaybackSeconds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_seconds_total",
		Help:      "Total seconds of audio played.",
	}, []string{"task_name"})

	PlaybackActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playback_active",
		Help:      "Whether audio is currently playing (1) or not (0).",
	})

	PlaybackQueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playback_queue_size",
		Help:      "Number of tracks in the playback queue.",
	})

	AudioErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_device_errors_total",
		Help:      "Total number of audio device errors.",
	})

	TasksCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created.",
	}, []string{"type"})

	TasksFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_failed_total",
		Help:      "Total number of failed task executions.",
	}, []string{"task_type", "task_name"})

	TasksActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_active",
		Help:      "Number of currently active scheduled/recurring tasks.",
	}, []string{"type"})

	TaskDrift = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_schedule_drift_seconds",
		Help:      "Difference between scheduled and actual execution time in seconds.",
		Buckets:   driftBuckets,
	}, []string{"task_type", "task_name"})

	DBOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_operations_total",
		Help:      "Total number of database operations.",
	}, []string{"operation", "table"})

	DBOpsDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_operation_duration_seconds",
		Help:      "Duration of database operations in seconds.",
		Buckets:   dbBuckets,
	}, []string{"operation", "table"})

	DBFilesCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_files_count",
		Help:      "Number of audio files stored in the database.",
	})

	DBFilesBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "db_files_bytes",
		Help:      "Total size of audio files stored in the database in bytes.",
	})

	EmailSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_sent_total",
		Help:      "Total number of emails sent.",
	}, []string{"status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   httpBuckets,
	}, []string{"method", "path"})

	ProcessCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_cpu_percent",
		Help:      "CPU usage of the running process, as a percentage.",
	})

	ProcessRSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_resident_memory_bytes",
		Help:      "Resident memory of the running process in bytes.",
	})

	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines",
		Help:      "Number of goroutines currently running.",
	})
)

func init() {
	prometheus.MustRegister(
		BuildInfo,
		PlaybackTotal,
		PlaybackSeconds,
		PlaybackActive,
		PlaybackQueueSize,
		AudioErrors,
		TasksCreated,
		TasksFailed,
		TasksActive,
		TaskDrift,
		DBOpsTotal,
		DBOpsDuration,
		DBFilesCount,
		DBFilesBytes,
		EmailSent,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProcessCPUPercent,
		ProcessRSSBytes,
		GoroutineCount,
	)

	TasksActive.WithLabelValues("scheduled").Set(0)
	TasksActive.WithLabelValues("recurring").Set(0)
	PlaybackActive.Set(0)
	PlaybackQueueSize.Set(0)
	DBFilesCount.Set(0)
	DBFilesBytes.Set(0)
}

// Init records build info; call once at startup with the running
// binary's source ref and the schema version it migrated to.
func Init(gitRef string, dbVersion int) {
	BuildInfo.WithLabelValues(gitRef, strconv.Itoa(dbVersion)).Set(1)
}

func RecordPlaybackSuccess(taskType, taskName string) {
	PlaybackTotal.WithLabelValues("success", taskType, taskName).Inc()
}

func RecordPlaybackFailure(taskType, taskName string) {
	PlaybackTotal.WithLabelValues("error", taskType, taskName).Inc()
	TasksFailed.WithLabelValues(taskType, taskName).Inc()
}

func RecordPlaybackSeconds(taskName string, seconds float64) {
	PlaybackSeconds.WithLabelValues(taskName).Add(seconds)
}

func SetPlaybackActive(active bool) {
	if active {
		PlaybackActive.Set(1)
	} else {
		PlaybackActive.Set(0)
	}
}

func SetQueueSize(size int) { PlaybackQueueSize.Set(float64(size)) }

func RecordTaskCreated(taskType string) { TasksCreated.WithLabelValues(taskType).Inc() }

func IncActiveTasks(taskType string) { TasksActive.WithLabelValues(taskType).Inc() }

func DecActiveTasks(taskType string) { TasksActive.WithLabelValues(taskType).Dec() }

func RecordDrift(taskType, taskName string, driftSeconds float64) {
	TaskDrift.WithLabelValues(taskType, taskName).Observe(driftSeconds)
}

// TimeDBOp returns a function to call when the operation finishes;
// it records both the counter and the duration histogram.
func TimeDBOp(operation, table string) func() {
	start := time.Now()
	return func() {
		DBOpsTotal.WithLabelValues(operation, table).Inc()
		DBOpsDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

func SetFileStats(count, bytes int64) {
	DBFilesCount.Set(float64(count))
	DBFilesBytes.Set(float64(bytes))
}

func RecordEmail(success bool) {
	status := "error"
	if success {
		status = "success"
	}
	EmailSent.WithLabelValues(status).Inc()
}

func RecordAudioError() { AudioErrors.Inc() }

// PollProcessStats samples this process's own CPU/RSS usage every
// interval until ctx is done, publishing them as gauges. The CPU
// gauge is the process's average usage since it started, not the
// usage within the last interval.
func PollProcessStats(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Error().Err(err).Msg("failed to open self process handle for metrics")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pct, err := proc.CPUPercent(); err == nil {
				ProcessCPUPercent.Set(pct)
			}
			if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
				ProcessRSSBytes.Set(float64(mi.RSS))
			}
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware instruments every request with the counter and duration
// histogram above, normalizing high-cardinality path segments to
// avoid label explosion.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := normalizePath(r.URL.Path)
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath mirrors the original implementation's manual prefix
// rules rather than chi's route pattern, so it also normalizes
// requests chi couldn't match to a route (404s still get a bounded
// label).
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/htmx/task/") && len(path) > len("/htmx/task/"):
		return "/htmx/task/:id"
	case strings.HasPrefix(path, "/htmx/file/") && len(path) > len("/htmx/file/"):
		return "/htmx/file/:fname"
	case strings.HasPrefix(path, "/api/file/") && len(path) > len("/api/file/"):
		return "/api/file/:fname"
	case strings.HasPrefix(path, "/static/"):
		return "/static/*path"
	default:
		return path
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
