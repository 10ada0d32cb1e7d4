// Package app wires the query service: configuration, telemetry, the ledger
// and health services, the chi router and the HTTP server lifecycle.
//
// # Initialization Flow
//
//  1. Resolve the working directory from the paths config
//  2. Initialize OpenTelemetry with a private Prometheus registry
//  3. Load the ledger artifacts (failures leave the service unready)
//  4. Build the router and middleware chain
//  5. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until the context ends or SIGINT/SIGTERM arrives, then shuts
// the server down within Server.ShutdownTimeout. SIGHUP reloads the ledger.
package app
