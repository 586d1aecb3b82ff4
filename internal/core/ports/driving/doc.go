// Package driving declares what the front ends (cli, tui, mcp, httpapi and
// the inbox watcher) may ask of the core. internal/core/services implements
// it.
package driving
