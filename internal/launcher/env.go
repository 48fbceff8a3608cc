package launcher

import (
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
)

// UpsertEnv sets key to value in env, a list of "KEY=value" entries. An
// existing entry is updated in place; otherwise one is appended. Keys are
// case-insensitive on Windows.
func UpsertEnv(env []string, key, value string) []string {
	entry := key + "=" + value
	for i, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok && envKeyEqual(k, key) {
			env[i] = entry
			return env
		}
	}
	return append(env, entry)
}

// LookupEnv returns the value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && envKeyEqual(k, key) {
			return v, true
		}
	}
	return "", false
}

// PrefixPath puts dir in front of PATH in env. An empty PATH becomes dir
// alone.
func PrefixPath(env []string, dir string) []string {
	return prefixPath(env, dir, string(os.PathListSeparator))
}

func prefixPath(env []string, dir, sep string) []string {
	current, _ := LookupEnv(env, "PATH")
	if strings.TrimSpace(current) == "" {
		return UpsertEnv(env, "PATH", dir)
	}
	if current == dir || strings.HasPrefix(current, dir+sep) {
		return env
	}
	return UpsertEnv(env, "PATH", dir+sep+current)
}

// mergeEnv applies overrides to base in key order.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := slices.Clone(base)
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		env = UpsertEnv(env, k, overrides[k])
	}
	return env
}

func envKeyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
