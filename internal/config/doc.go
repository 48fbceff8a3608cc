// Package config loads loom-zed settings.
//
// Settings come from a single file whose extension picks the format:
// JSON, YAML, TOML or Lua. The decoded document is validated against an
// embedded JSON schema, merged over the defaults with viper, and finally
// overridden by LOOM_ZED_* environment variables (LOOM_ZED_DOWNLOAD_TAG,
// LOOM_ZED_COMMAND_PATH, ...).
//
// # Lua settings
//
// Lua files run in a gopher-lua VM with only the base, string, table and
// math libraries. Anything that loads code, touches the filesystem or the
// process, or manipulates metatables is removed. The read-only platform
// table is injected before the file runs, so settings can branch on the
// host:
//
//	loom = {
//	  download = {
//	    tag = "v0.9.1",
//	    asset = platform.when(platform.is_windows, "loom-core_v0.9.1_windows_amd64.zip"),
//	  },
//	  command = {
//	    args = { "proxy" },
//	    env = { LOOM_LOG = "info" },
//	  },
//	}
//
// Evaluation is bounded by a short timeout.
//
// # Secrets
//
// Settings files are scanned for values that look like credentials and a
// warning is logged for each. GITHUB_TOKEN belongs in the environment.
package config
