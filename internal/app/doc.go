// Package app wires the report server: configuration, telemetry, the
// optional indicator store and the chi router serving finished runs.
//
// # Middleware
//
// Requests pass through RequestID, RealIP and StripSlashes, then tracing,
// structured logging, panic recovery, security headers and, when enabled,
// rate limiting. The Prometheus endpoint is mounted outside the rate limit.
//
// # Lifecycle
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run serves until SIGINT or SIGTERM, then shuts the HTTP server down within
// Server.ShutdownTimeout, closes the store and flushes telemetry.
package app
