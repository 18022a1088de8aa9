// Package internal contains the implementation packages of txtof.
//
// # Package Organization
//
// Rendering flows through these packages in order:
//
//   - scanner: splits markup into lines and tokens (pages, rows, elements)
//   - element: the element kinds and their parsed attributes
//   - document: pages, rows and the element tree built by the scanner
//   - templates: the template slot set and its file loaders (lines, YAML, TOML)
//   - renderer: executes templates over a document and produces HTML
//   - services: wires scanner, templates and renderer into one render call
//
// Supporting packages:
//
//   - config: viper-backed configuration with defaults and env binding
//   - logging: structured logger used by every other package
//   - errors: typed errors with codes and a CLI error handler
//   - watcher: debounced fsnotify watcher for input and template files
//   - server: live preview HTTP server with a websocket reload hub
//   - lint: checks rendered HTML for structural problems
//   - version: build metadata for the version command and health endpoint
//   - testutils: helpers shared by package tests
//
// # Inter-Package Communication
//
// The cmd package loads config, then builds a services.RenderService per
// render. The watch and serve commands rebuild that service on each watcher
// event so template file edits take effect without a restart. The server
// broadcasts a reload over its hub only when the rendered bytes change.
package internal
