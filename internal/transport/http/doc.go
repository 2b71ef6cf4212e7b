// Package http serves stored analysis runs over HTTP.
//
// Handlers are thin: they parse the route, read from a RunReader and render
// JSON with chi/render. Application errors become APIError responses via
// errors.FromError, so a missing run is a 404 and a corrupt report a 422.
//
// # Endpoints
//
//	GET /api/health                     liveness
//	GET /api/health/ready               readiness, pings configured checks
//	GET /api/version                    build information
//	GET /api/v1/runs                    run summaries, newest first
//	GET /api/v1/runs/{id}               full run report
//	GET /api/v1/runs/{id}/summary       plain text summary
//	GET /api/v1/runs/{id}/verification  verification report of the run
package http
