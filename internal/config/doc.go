// SPDX-License-Identifier: MPL-2.0

// Package config loads drun configuration from defaults, an optional YAML
// config file, and DRUN_* environment variables, in increasing precedence.
// CLI flags are applied on top by the cmd layer.
package config
