// Package services implements the query layer of the claims ledger.
// It sits between the HTTP handlers and the pipeline artifacts so that the
// handlers only parse requests and render responses.
//
// # Services
//
//	LedgerService  operators, expense history and statistics
//	HealthService  liveness, readiness and version reporting
//
// # Data Lifecycle
//
// LedgerService reads three artifacts produced by the pipeline:
//
//	data/output/operadoras.csv           canonical registry
//	data/output/consolidado_despesas.csv consolidated ledger
//	data/output/enriquecido.csv          ledger joined with the registry
//
// Load builds an immutable snapshot from them. Queries read the snapshot
// under a read lock, so a reload never exposes a half-built view. When the
// first load fails every query returns the load error, which the HTTP layer
// reports as 503.
//
// # Error Handling
//
// Services return *errors.AppError or *errors.APIError values. The HTTP
// layer maps them to RFC 7807 responses:
//
//	NOT_FOUND         404
//	VALIDATION        400
//	STORAGE           503
//	STRUCTURAL        503
//
// # Logging
//
// Services take a *slog.Logger in their constructor and log with the
// request context so trace ids flow into every record.
package services
