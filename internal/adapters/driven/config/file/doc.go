// Package file keeps docqa's state that users may edit by hand under the
// data directory: config.toml, the prompt templates and organizations.yaml.
package file
