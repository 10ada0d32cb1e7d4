// Package http implements the HTTP handlers of the query service.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result. Errors go through errors.ErrorHandler so every
// failure is answered as RFC 7807 problem details.
//
// # Routes
//
//	GET /api/operadoras                     paged operator listing
//	GET /api/operadoras/{cnpj}              one operator
//	GET /api/operadoras/{cnpj}/despesas     quarterly expense history
//	GET /api/estatisticas                   totals, top operators, per-UF breakdown
//	GET /api/health[/ready|/live]           health probes
//	GET /api/version                        build information
//	GET /metrics                            Prometheus exposition
//
// Path identifiers must have exactly 14 digits once punctuation is removed,
// otherwise the request fails with 422 before reaching the service.
package http
