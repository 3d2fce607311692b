// Package app provides command initialization and lifecycle management for
// the pipeline binaries.
//
// # Initialization Flow
//
//	1. Parse flags (ParseFlags)
//	2. Load configuration: defaults, BRA_* environment, YAML file, flags
//	3. Initialize logging and telemetry
//	4. Create the pipeline manager
//	5. Run the pipeline with SIGINT and SIGTERM cancelling the context
//	6. Flush telemetry and close the log file
//
// # Usage
//
//	func main() {
//	    os.Exit(app.Main("ddpd", os.Args[1:], os.Stderr, true, operations.FullPipeline))
//	}
//
// # Error Handling
//
// Initialization errors are returned to the caller. Only Main turns an
// outcome into an exit code; nothing here calls os.Exit.
package app
