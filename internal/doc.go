// Package internal holds the Vitrin server internals.
//
// Layout:
//   - api: HTTP handlers, middleware and routing
//   - domain: content types and their services (products, blogs, events, ...)
//   - storage: Postgres repositories and the media backends
//   - jobs: River workers for compression, indexing and cleanup
//   - search, weather, assistant, email, video: integrations
//   - auth, audit, config, i18n, metrics, telemetry: shared infrastructure
package internal
