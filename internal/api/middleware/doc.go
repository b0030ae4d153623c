// Package middleware provides the gin middleware stack for the session API.
//
//   - CORS: cross-origin access, exposing the trace headers
//   - RateLimit: per-IP token buckets with idle eviction
//   - GlobalRateLimit: one bucket for all clients
//   - Recovery: panics become 500 responses logged through zap
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
