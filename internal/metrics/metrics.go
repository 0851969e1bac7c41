// Package metrics collects and exposes Prometheus metrics for the blog API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and middleware.
type Recorder interface {
	RecordPostCreated()
	RecordPostUpdated()
	RecordPostDeleted()
	RecordPostView()
	RecordImageUpload(success bool, duration time.Duration)
	RecordAuthFailure(reason string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	postsCreated   prometheus.Counter
	postsUpdated   prometheus.Counter
	postsDeleted   prometheus.Counter
	postViews      prometheus.Counter
	imageUploads   *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	authFailures   *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "writehub_posts_created_total",
			Help: "Number of posts created.",
		}),
		postsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "writehub_posts_updated_total",
			Help: "Number of posts updated.",
		}),
		postsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "writehub_posts_deleted_total",
			Help: "Number of posts deleted.",
		}),
		postViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "writehub_post_views_total",
			Help: "Number of single-post reads that incremented a view counter.",
		}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "writehub_image_uploads_total",
			Help: "Image uploads to the blob store by result.",
		}, []string{"result"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "writehub_image_upload_duration_seconds",
			Help:    "Latency of image uploads to the blob store.",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "writehub_auth_failures_total",
			Help: "Rejected or unresolved credentials by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.postsUpdated,
		c.postsDeleted,
		c.postViews,
		c.imageUploads,
		c.uploadDuration,
		c.authFailures,
	)

	return c
}

func (c *Collector) RecordPostCreated() { c.postsCreated.Inc() }
func (c *Collector) RecordPostUpdated() { c.postsUpdated.Inc() }
func (c *Collector) RecordPostDeleted() { c.postsDeleted.Inc() }
func (c *Collector) RecordPostView()    { c.postViews.Inc() }

// RecordImageUpload records the outcome and latency of one upload.
func (c *Collector) RecordImageUpload(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.imageUploads.WithLabelValues(result).Inc()
	c.uploadDuration.Observe(duration.Seconds())
}

// RecordAuthFailure counts a credential that could not be resolved.
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// AuthFailures returns the failure counter for reason.
func (c *Collector) AuthFailures(reason string) prometheus.Counter {
	return c.authFailures.WithLabelValues(reason)
}

// Nop discards everything. Useful in tests and tools.
type Nop struct{}

func (Nop) RecordPostCreated()                    {}
func (Nop) RecordPostUpdated()                    {}
func (Nop) RecordPostDeleted()                    {}
func (Nop) RecordPostView()                       {}
func (Nop) RecordImageUpload(bool, time.Duration) {}
func (Nop) RecordAuthFailure(string)              {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
