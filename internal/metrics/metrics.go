// Package metrics holds the forum's prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_upload_rejected_total",
		Help: "Total uploads rejected before storing, by reason.",
	}, []string{"reason"})
	MediaUploaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_media_uploaded_total",
		Help: "Total medias stored, by media type.",
	}, []string{"type"})

	PreviewsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_previews_created_total",
		Help: "Total image previews stored, by preview name.",
	}, []string{"preview"})
	ImagingFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forum_imaging_fail_total",
		Help: "Total image pipelines rolled back on error.",
	})
	ImagingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "forum_imaging_duration_seconds",
		Help:    "Time spent building an image and all its previews.",
		Buckets: prometheus.DefBuckets,
	})

	FileRemovalOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forum_file_removal_ok_total",
		Help: "Total file removal tasks done by the worker.",
	})
	FileRemovalFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forum_file_removal_fail_total",
		Help: "Total file removal tasks that failed.",
	})

	LoginFail = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_login_fail_total",
		Help: "Total rejected logins, by reason.",
	}, []string{"reason"})
)

// Register adds every collector to the default registry.
// Call it once from the command that serves or exports metrics.
func Register() {
	prometheus.MustRegister(
		UploadRejected, MediaUploaded,
		PreviewsCreated, ImagingFail, ImagingDuration,
		FileRemovalOK, FileRemovalFail,
		LoginFail,
	)
}
