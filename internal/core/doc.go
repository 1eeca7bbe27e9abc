// Package core provides the business logic for report-splitting runs.
//
// This package is the heart of the service, containing all domain logic
// independent of any transport layer. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Report Definitions: Registered via the registry, each report names the
//     column whose values partition the input and how archive entries are
//     laid out.
//   - Service: The main entry point for all operations (start a run, watch
//     its progress, download or revoke its archive).
//   - Runs: One asynchronous execution of the split pipeline over one
//     uploaded file, tracked from start to expiry.
//   - History: A bounded in-memory record of recent runs for operators.
//
// # Report Registry
//
// Reports are registered at init time using [Register]. Each
// [ReportDefinition] contains everything needed to split one kind of file:
//
//	core.Register(ReportDefinition{
//	    Key:         "monthly",
//	    Label:       "Monthly Report",
//	    GroupColumn: "Development Name??",
//	})
//
// # Run Lifecycle
//
// Runs are asynchronous. The flow is:
//
//  1. Client calls [Service.StartRun] with a reader over the CSV bytes
//  2. The service reads the input, then parses, groups, serializes, and
//     archives it in a background goroutine
//  3. Progress is broadcast to subscribers via [Service.SubscribeProgress]
//  4. The finished archive stays downloadable until it is revoked or its
//     retention window lapses
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - PARSE001: Malformed CSV input
//   - SCHEMA001-SCHEMA002: Group column missing or not configured
//   - EMPTY001: No data rows to split
//   - FILE001-FILE004: File errors (size, missing, empty, type)
//   - RUN001-RUN004: Run lifecycle errors (not found, busy, revoked)
package core
