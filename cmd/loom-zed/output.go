package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/crb2nu/loom-zed/internal/binary"
	"github.com/crb2nu/loom-zed/internal/launcher"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

// addOutputFlags registers --output and its --json shorthand.
func addOutputFlags(cmd *cobra.Command, format *string, asJSON *bool) {
	cmd.Flags().StringVarP(format, "output", "o", string(formatText), "output format: text, json or yaml")
	cmd.Flags().BoolVar(asJSON, "json", false, "shorthand for --output json")
}

func resolveFormat(format string, asJSON bool) (outputFormat, error) {
	if asJSON {
		return formatJSON, nil
	}
	switch f := outputFormat(strings.ToLower(format)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func writeStructured(w io.Writer, f outputFormat, v any) error {
	switch f {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// recordView is the printed form of an install.
type recordView struct {
	Path            string            `json:"path" yaml:"path"`
	Source          string            `json:"source,omitempty" yaml:"source,omitempty"`
	Version         string            `json:"version,omitempty" yaml:"version,omitempty"`
	ReportedVersion string            `json:"reported_version,omitempty" yaml:"reported_version,omitempty"`
	BinDir          string            `json:"bin_dir,omitempty" yaml:"bin_dir,omitempty"`
	Latest          bool              `json:"latest" yaml:"latest"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	Companions      map[string]string `json:"companions,omitempty" yaml:"companions,omitempty"`
	Args            []string          `json:"args,omitempty" yaml:"args,omitempty"`
}

func viewRecord(rec *binary.InstallRecord) recordView {
	v := recordView{
		Path:            rec.Path,
		Version:         rec.Version,
		ReportedVersion: rec.ReportedVersion,
		BinDir:          rec.BinDir,
		Latest:          rec.Latest,
		Companions:      rec.Companions,
	}
	if !rec.ResolvedAt.IsZero() {
		at := rec.ResolvedAt.UTC()
		v.ResolvedAt = &at
	}
	return v
}

func viewCommand(c *launcher.Command) recordView {
	v := recordView{Path: c.Path}
	if c.Record != nil {
		v = viewRecord(c.Record)
	}
	v.Source = string(c.Source)
	v.Args = c.Args
	return v
}

func writeText(w io.Writer, v recordView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, val string) {
		if val != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, val)
		}
	}
	row("path", v.Path)
	row("source", v.Source)
	row("version", v.Version)
	row("reported", v.ReportedVersion)
	row("bin dir", v.BinDir)
	if v.ResolvedAt != nil {
		row("resolved", v.ResolvedAt.Format(time.RFC3339))
	}
	for _, name := range sortedKeys(v.Companions) {
		row(name, v.Companions[name])
	}
	if len(v.Args) > 0 {
		row("args", strings.Join(v.Args, " "))
	}
	return tw.Flush()
}
