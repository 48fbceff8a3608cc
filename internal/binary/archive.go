package binary

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/crb2nu/loom-zed/internal/platform"
)

// ArchiveKind is the container format of a downloaded payload.
type ArchiveKind int

const (
	KindRaw ArchiveKind = iota
	KindZip
	KindTarGz
	KindGzip // single gzip-compressed file
)

func (k ArchiveKind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTarGz:
		return "tar.gz"
	case KindGzip:
		return "gzip"
	default:
		return "raw"
	}
}

// maxEntrySize bounds a single decompressed entry.
const maxEntrySize = 512 << 20

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// KindFromHint derives the kind from a file name. ok is false when the
// name carries no archive extension.
func KindFromHint(hint string) (ArchiveKind, bool) {
	lower := strings.ToLower(hint)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz, true
	case strings.HasSuffix(lower, ".gz"):
		return KindGzip, true
	}
	return KindRaw, false
}

// SniffKind inspects magic bytes.
func SniffKind(data []byte) ArchiveKind {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return KindZip
	case bytes.HasPrefix(data, gzipMagic):
		return KindGzip
	}
	return KindRaw
}

// Inspector locates executables inside downloaded payloads.
type Inspector struct {
	// Tokens is used to strip platform suffixes from entry names.
	Tokens platform.Tokens
}

// NewInspector returns an Inspector using tokens.
func NewInspector(tokens platform.Tokens) *Inspector {
	return &Inspector{Tokens: tokens}
}

// ExtractExecutable is Inspector.Extract with the default token table.
func ExtractExecutable(data []byte, hint, executableName string) ([]byte, error) {
	return NewInspector(platform.DefaultTokens()).Extract(data, hint, executableName)
}

// Extract returns the bytes of executableName from data. hint is usually
// the asset name and decides the format when it has an archive extension;
// otherwise the format is sniffed. A payload that is not an archive is
// returned unchanged.
func (in *Inspector) Extract(data []byte, hint, executableName string) ([]byte, error) {
	return in.extract(data, hint, executableName, true)
}

// ExtractCompanion is Extract for optional executables: a raw payload never
// contains a companion.
func (in *Inspector) ExtractCompanion(data []byte, hint, executableName string) ([]byte, error) {
	return in.extract(data, hint, executableName, false)
}

func (in *Inspector) extract(data []byte, hint, name string, allowRaw bool) ([]byte, error) {
	kind, hinted := KindFromHint(hint)
	if !hinted {
		kind = SniffKind(data)
	}

	var (
		out []byte
		err error
	)
	switch kind {
	case KindZip:
		out, err = in.fromZip(data, hint, name)
	case KindTarGz, KindGzip:
		out, err = in.fromGzip(data, hint, name, kind == KindTarGz, allowRaw)
	default:
		if !allowRaw {
			return nil, &ExecutableNotFoundError{Name: name, Archive: hint}
		}
		return data, nil
	}
	if err != nil {
		var notFound *ExecutableNotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, &ArchiveUnrecognizedError{Hint: hint, Err: err}
	}
	return out, nil
}

func (in *Inspector) fromZip(data []byte, hint, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	m := in.newMatcher(name)
	for _, f := range zr.File {
		if !f.Mode().IsRegular() || !m.wants(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
		}
		body, err := readEntry(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
		}
		m.offer(f.Name, body)
	}
	return m.result(hint)
}

func (in *Inspector) fromGzip(data []byte, hint, name string, isTar, allowRaw bool) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	plain, err := readEntry(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	if !isTar && !looksLikeTar(plain) {
		if !allowRaw {
			return nil, &ExecutableNotFoundError{Name: name, Archive: hint}
		}
		return plain, nil
	}

	m := in.newMatcher(name)
	tr := tar.NewReader(bytes.NewReader(plain))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !m.wants(header.Name) {
			continue
		}
		body, err := readEntry(tr)
		if err != nil {
			return nil, fmt.Errorf("read tar entry %s: %w", header.Name, err)
		}
		m.offer(header.Name, body)
	}
	return m.result(hint)
}

// looksLikeTar checks for the ustar magic at offset 257.
func looksLikeTar(b []byte) bool {
	return len(b) >= 262 && string(b[257:262]) == "ustar"
}

func readEntry(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return body, nil
}

// entryMatcher keeps the best entry seen so far: an exact base-name match
// beats a generic one, then the shallowest path wins, then the first seen.
type entryMatcher struct {
	name    string
	generic string
	in      *Inspector

	found bool
	exact bool
	depth int
	body  []byte
}

func (in *Inspector) newMatcher(name string) *entryMatcher {
	return &entryMatcher{name: name, generic: in.genericName(name), in: in}
}

func (m *entryMatcher) classify(entry string) (exact, generic bool) {
	base := path.Base(strings.ReplaceAll(entry, "\\", "/"))
	if base == m.name {
		return true, false
	}
	return false, m.generic != "" && m.in.genericName(base) == m.generic
}

func (m *entryMatcher) wants(entry string) bool {
	exact, generic := m.classify(entry)
	if !exact && !generic {
		return false
	}
	if !m.found {
		return true
	}
	depth := entryDepth(entry)
	if exact != m.exact {
		return exact
	}
	return depth < m.depth
}

func (m *entryMatcher) offer(entry string, body []byte) {
	exact, _ := m.classify(entry)
	m.found = true
	m.exact = exact
	m.depth = entryDepth(entry)
	m.body = body
}

func (m *entryMatcher) result(archive string) ([]byte, error) {
	if !m.found {
		return nil, &ExecutableNotFoundError{Name: m.name, Archive: archive}
	}
	return m.body, nil
}

func entryDepth(entry string) int {
	entry = strings.Trim(strings.ReplaceAll(entry, "\\", "/"), "/")
	entry = strings.TrimPrefix(entry, "./")
	return strings.Count(entry, "/")
}

// genericName reduces an executable file name to its stem: ".exe" is
// dropped, as is every "-" or "_" separated token that names a platform or
// parses as a version. "loom_v0.9.1_linux_amd64.exe" becomes "loom".
func (in *Inspector) genericName(base string) string {
	lower := strings.ToLower(base)
	lower = strings.TrimSuffix(lower, ".exe")

	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '-' || r == '_'
	})
	kept := fields[:0]
	for _, f := range fields {
		if in.Tokens.IsPlatformToken(f) || isVersionToken(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, "-")
}

func isVersionToken(s string) bool {
	if s == "" || (s[0] != 'v' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	_, err := semver.NewVersion(s)
	return err == nil
}
