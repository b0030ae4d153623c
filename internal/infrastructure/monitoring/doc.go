/*
Package monitoring provides Prometheus metrics for the session service.

# Overview

Every Metrics value owns its own registry. The HTTP layer records request
metrics through Middleware; capture and restore reports are folded into
per-status outcome counters so skipped files and failed windows show up on
dashboards without reading logs.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	m, rep := capturer.CaptureSession(ctx)
	metrics.RecordCapture(rep, time.Since(start))

	timer := monitoring.NewTimer(metrics, "file", "write")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
