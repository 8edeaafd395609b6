package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every core metric.
type Config struct {
	ServiceName string
	Environment string
}

// Low-cardinality label values shared across packages.
const (
	MutationUpsert     = "upsert"
	MutationUpdate     = "update"
	MutationDelete     = "delete"
	MutationSetMemo    = "set_memo"
	MutationDeleteMemo = "delete_memo"
	MutationClear      = "clear"

	SyncClassUI     = "ui"
	SyncClassRemote = "remote"

	StorageOpSave   = "save"
	StorageOpLoad   = "load"
	StorageOpRemove = "remove"
)

// CoreMetrics captures health signals for the local data store pipeline.
type CoreMetrics struct {
	storeMutations  *prometheus.CounterVec
	eventsDispatch  *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	syncScheduled   *prometheus.CounterVec
	syncCoalesced   *prometheus.CounterVec
	syncFlushes     *prometheus.CounterVec
	retryAttempts   *prometheus.CounterVec
	retryExhausted  *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	recordedErrors  *prometheus.CounterVec
}

var (
	coreMetricsOnce sync.Once
	coreMetrics     *CoreMetrics
)

// Core returns the singleton core metrics registry.
func Core() *CoreMetrics {
	return CoreWithConfig(Config{})
}

// CoreWithConfig returns the singleton core metrics registry using config labels.
func CoreWithConfig(cfg Config) *CoreMetrics {
	coreMetricsOnce.Do(func() {
		coreMetrics = newCoreMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return coreMetrics
}

// ResetCoreMetricsForTest resets the core metrics singleton for tests.
func ResetCoreMetricsForTest() {
	coreMetricsOnce = sync.Once{}
	coreMetrics = nil
}

func newCoreMetrics(registerer prometheus.Registerer, cfg Config) *CoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "cutflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	storeMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_store_mutations_total",
		Help:        "Store mutations by operation.",
		ConstLabels: constLabels,
	}, []string{"op"})
	eventsDispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_events_dispatched_total",
		Help:        "Domain events dispatched by type.",
		ConstLabels: constLabels,
	}, []string{"type"})
	handlerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_handler_errors_total",
		Help:        "Subscriber handler failures isolated by the dispatcher.",
		ConstLabels: constLabels,
	}, []string{"source"})
	syncScheduled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_sync_scheduled_total",
		Help:        "Debounce schedules by timing class.",
		ConstLabels: constLabels,
	}, []string{"class"})
	syncCoalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_sync_coalesced_total",
		Help:        "Schedules that replaced a pending payload instead of starting a new window.",
		ConstLabels: constLabels,
	}, []string{"class"})
	syncFlushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_sync_flushes_total",
		Help:        "Debounce flushes delivered to the sync operation.",
		ConstLabels: constLabels,
	}, []string{"class"})
	retryAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_retry_attempts_total",
		Help:        "Retry attempts by operation label.",
		ConstLabels: constLabels,
	}, []string{"label"})
	retryExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_retry_exhausted_total",
		Help:        "Operations that failed after exhausting retries.",
		ConstLabels: constLabels,
	}, []string{"label"})
	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_storage_failures_total",
		Help:        "Local storage adapter failures by operation.",
		ConstLabels: constLabels,
	}, []string{"op"})
	recordedErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "cutflow_recorded_errors_total",
		Help:        "Handled failures recorded by the error policy, by class.",
		ConstLabels: constLabels,
	}, []string{"class"})

	registerer.MustRegister(
		storeMutations,
		eventsDispatch,
		handlerErrors,
		syncScheduled,
		syncCoalesced,
		syncFlushes,
		retryAttempts,
		retryExhausted,
		storageFailures,
		recordedErrors,
	)

	return &CoreMetrics{
		storeMutations:  storeMutations,
		eventsDispatch:  eventsDispatch,
		handlerErrors:   handlerErrors,
		syncScheduled:   syncScheduled,
		syncCoalesced:   syncCoalesced,
		syncFlushes:     syncFlushes,
		retryAttempts:   retryAttempts,
		retryExhausted:  retryExhausted,
		storageFailures: storageFailures,
		recordedErrors:  recordedErrors,
	}
}

func (m *CoreMetrics) IncStoreMutation(op string) {
	if m == nil || m.storeMutations == nil {
		return
	}
	m.storeMutations.WithLabelValues(op).Inc()
}

func (m *CoreMetrics) IncEventDispatched(eventType string) {
	if m == nil || m.eventsDispatch == nil {
		return
	}
	m.eventsDispatch.WithLabelValues(eventType).Inc()
}

func (m *CoreMetrics) IncHandlerError(source string) {
	if m == nil || m.handlerErrors == nil {
		return
	}
	m.handlerErrors.WithLabelValues(source).Inc()
}

func (m *CoreMetrics) IncSyncScheduled(class string) {
	if m == nil || m.syncScheduled == nil {
		return
	}
	m.syncScheduled.WithLabelValues(class).Inc()
}

func (m *CoreMetrics) IncSyncCoalesced(class string) {
	if m == nil || m.syncCoalesced == nil {
		return
	}
	m.syncCoalesced.WithLabelValues(class).Inc()
}

func (m *CoreMetrics) IncSyncFlush(class string) {
	if m == nil || m.syncFlushes == nil {
		return
	}
	m.syncFlushes.WithLabelValues(class).Inc()
}

func (m *CoreMetrics) IncRetryAttempt(label string) {
	if m == nil || m.retryAttempts == nil {
		return
	}
	m.retryAttempts.WithLabelValues(label).Inc()
}

func (m *CoreMetrics) IncRetryExhausted(label string) {
	if m == nil || m.retryExhausted == nil {
		return
	}
	m.retryExhausted.WithLabelValues(label).Inc()
}

func (m *CoreMetrics) IncStorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(op).Inc()
}

func (m *CoreMetrics) IncRecordedError(class string) {
	if m == nil || m.recordedErrors == nil {
		return
	}
	m.recordedErrors.WithLabelValues(class).Inc()
}
