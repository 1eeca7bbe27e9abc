// Package reports registers all report definitions with the core registry.
// Import this package to ensure all reports are registered.
package reports

// This file exists to provide a single import point.
// Each report file uses init() to register its definitions.
