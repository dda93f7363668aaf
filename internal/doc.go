// Package internal contains the core implementation packages for landing.
//
// # Package Organization
//
//   - scanner: discovers page entries and templates from the pages tree
//   - pipeline: composes the build configuration and layers the
//     production and development profiles over it
//   - build: executes a configuration (bundle, minimize, fingerprint,
//     copy, optimize images, emit pages, check budgets, write)
//   - renderer: include expansion and HTML tag injection for page templates
//   - config: layered configuration loading and validation
//   - errors: typed build errors and fail-soft diagnostics
//   - logging: structured, component-scoped logging and phase timing
//   - watcher: debounced recursive file watching
//   - server, middleware: development file server with live reload
//   - services: build, watch, serve and init workflows used by the CLI
//   - version: build identity
//
// # Data Flow
//
// A build is a pipeline of values. The scanner produces the page set, the
// composer turns it into a Configuration, a profile overlays it, and the
// build runner executes the result into the output directory and returns a
// Report. No stage mutates the input of a previous one.
package internal
