// Package main hosts the newstide service entrypoint.
//
// Architecture overview:
//   - CLI: internal/cli wires the cobra commands. serve runs the HTTP API plus
//     the daily retention scheduler; crawl and cleanup run one-shot ingestion
//     and retention passes against the same application container.
//   - Ingestion: internal/ingest fetches headline items per source through the
//     feed.Fetcher adapters (Colly scraper or deterministic mock), normalizes
//     titles, derives content-based dedup keys, assigns default scores, and
//     persists via a single insert-if-absent statement per item. Item-level
//     failures are counted into the run summary, never fatal to the run.
//   - Ledger: every ingestion run and retention sweep appends one crawl_runs
//     row. Status endpoints and the cleanup --status flag are derived from the
//     ledger, so reporting survives process restarts.
//   - Retention: internal/retention deletes (or archives) active articles at
//     least window_days old, on demand or daily at retention.at via robfig
//     cron. Sweeps and ingestion runs each hold a process-local lock; a second
//     concurrent request is rejected, never queued.
//   - Persistence: internal/store declares the repository interfaces;
//     internal/storage/postgres implements them on pgx with schema bootstrap,
//     and internal/storage/memory provides a full-fidelity in-memory provider
//     for tests and demo deployments.
//   - Plumbing: Viper populates config from file/env (NEWSTIDE_ prefix); zap
//     provides structured logging; Prometheus metrics are exported on
//     /metrics; run-completion events are published to Pub/Sub when a topic is
//     configured, with a noop provider by default.
//
// Quick checklist:
//   - Configure env vars: NEWSTIDE_SERVER_PORT, NEWSTIDE_DB_PROVIDER
//     (memory/postgres), NEWSTIDE_DB_DSN, NEWSTIDE_RETENTION_WINDOW_DAYS,
//     NEWSTIDE_RETENTION_AT, and pubsub settings when event fanout is wanted.
//   - Run locally: go run ./cmd/newstide serve --config newstide.yaml, then
//     POST /api/start-crawl (optionally {"useMock":true}) to ingest.
package main
