package config

import (
	"regexp"
	"strings"
)

// SensitivePattern is a pattern that suggests a hardcoded credential.
type SensitivePattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// Assignments are matched in Lua (k = "v"), TOML (k = "v"), JSON ("k": "v")
// and YAML (k: v) spelling.
const assign = `["']?\s*[:=]\s*['"]?`

var sensitivePatterns = []SensitivePattern{
	{
		Name:    "GitHub Token",
		Pattern: regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{40,})`),
	},
	{
		Name:    "Token",
		Pattern: regexp.MustCompile(`(?i)(token|auth[_-]?token|access[_-]?token|bearer)` + assign + `[A-Za-z0-9_\-.]{15,}`),
	},
	{
		Name:    "API Key",
		Pattern: regexp.MustCompile(`(?i)(api[_-]?key|apikey)` + assign + `[A-Za-z0-9_\-]{15,}`),
	},
	{
		Name:    "Password",
		Pattern: regexp.MustCompile(`(?i)(password|passwd|pwd)` + assign + `[^'"\s,}]{4,}`),
	},
	{
		Name:    "Secret",
		Pattern: regexp.MustCompile(`(?i)(secret|secret[_-]?key|private[_-]?key)` + assign + `[A-Za-z0-9_\-]{15,}`),
	},
}

// SensitiveDataFinding is one suspicious line.
type SensitiveDataFinding struct {
	PatternName string
	Line        int
	Preview     string
}

// DetectSensitiveData scans settings content for values that look like
// credentials. At most one finding is reported per line.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	for lineNum, line := range strings.Split(content, "\n") {
		for _, pattern := range sensitivePatterns {
			if pattern.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: pattern.Name,
					Line:        lineNum + 1,
					Preview:     redactSensitiveValue(line),
				})
				break
			}
		}
	}
	return findings
}

// redactSensitiveValue keeps the key of an assignment and hides the value.
func redactSensitiveValue(line string) string {
	line = strings.TrimSpace(line)
	idx := strings.IndexAny(line, "=:")
	if idx == -1 {
		if len(line) > 12 {
			return line[:12] + "... [REDACTED]"
		}
		return "[REDACTED]"
	}
	return strings.TrimSpace(line[:idx]) + line[idx:idx+1] + " [REDACTED]"
}
