package platform

import (
	"fmt"
	"strings"
)

// Tokens is the naming table used to recognize a platform inside release
// asset and archive entry names. The first token of each list is the one
// loom-core uses in its canonical asset names; the rest are aliases seen in
// the wild. Tables are values; Extend returns a copy.
type Tokens struct {
	OS   map[OS][]string
	Arch map[Arch][]string
}

// DefaultTokens returns the built-in naming table.
func DefaultTokens() Tokens {
	return Tokens{
		OS: map[OS][]string{
			OSMacOS:   {"darwin", "macos", "mac", "osx"},
			OSLinux:   {"linux"},
			OSWindows: {"windows", "win", "win64", "win32"},
		},
		Arch: map[Arch][]string{
			ArchAMD64: {"amd64", "x86_64", "x8664", "x64"},
			ArchARM64: {"arm64", "aarch64"},
			ArchX86:   {"x86", "386", "i386", "i686"},
		},
	}
}

// Extend returns a copy of t with extra aliases appended. Keys are any name
// ParseOS/ParseArch accept.
func (t Tokens) Extend(osAliases, archAliases map[string][]string) (Tokens, error) {
	out := Tokens{
		OS:   make(map[OS][]string, len(t.OS)),
		Arch: make(map[Arch][]string, len(t.Arch)),
	}
	for k, v := range t.OS {
		out.OS[k] = append([]string(nil), v...)
	}
	for k, v := range t.Arch {
		out.Arch[k] = append([]string(nil), v...)
	}

	for key, aliases := range osAliases {
		goos, ok := ParseOS(key)
		if !ok {
			return Tokens{}, fmt.Errorf("unknown os %q in alias table", key)
		}
		out.OS[goos] = appendUnique(out.OS[goos], aliases)
	}
	for key, aliases := range archAliases {
		arch, ok := ParseArch(key)
		if !ok {
			return Tokens{}, fmt.Errorf("unknown arch %q in alias table", key)
		}
		out.Arch[arch] = appendUnique(out.Arch[arch], aliases)
	}
	return out, nil
}

// OSToken returns the canonical asset token for goos.
func (t Tokens) OSToken(goos OS) string {
	if toks := t.OS[goos]; len(toks) > 0 {
		return toks[0]
	}
	return string(goos)
}

// ArchToken returns the canonical asset token for arch.
func (t Tokens) ArchToken(arch Arch) string {
	if toks := t.Arch[arch]; len(toks) > 0 {
		return toks[0]
	}
	return string(arch)
}

// MatchOS reports whether name mentions any token of goos.
func (t Tokens) MatchOS(name string, goos OS) bool {
	name = strings.ToLower(name)
	for _, tok := range t.OS[goos] {
		if containsToken(name, tok) {
			return true
		}
	}
	return false
}

// ArchOf returns the architecture name refers to. When tokens of several
// architectures occur, the longest matching token wins, so "x86_64" is read
// as amd64 and never as x86.
func (t Tokens) ArchOf(name string) (Arch, bool) {
	name = strings.ToLower(name)
	var (
		best    Arch
		bestLen int
	)
	for arch, toks := range t.Arch {
		for _, tok := range toks {
			if len(tok) > bestLen && containsToken(name, tok) {
				best, bestLen = arch, len(tok)
			}
		}
	}
	return best, bestLen > 0
}

// IsPlatformToken reports whether s is exactly one of the known OS or
// architecture tokens.
func (t Tokens) IsPlatformToken(s string) bool {
	s = strings.ToLower(s)
	for _, toks := range t.OS {
		for _, tok := range toks {
			if s == tok {
				return true
			}
		}
	}
	for _, toks := range t.Arch {
		for _, tok := range toks {
			if s == tok {
				return true
			}
		}
	}
	return false
}

// containsToken reports whether tok occurs in name delimited by
// non-alphanumeric characters or the ends of the string.
func containsToken(name, tok string) bool {
	tok = strings.ToLower(tok)
	if tok == "" {
		return false
	}
	for start := 0; start <= len(name)-len(tok); {
		idx := strings.Index(name[start:], tok)
		if idx < 0 {
			return false
		}
		i := start + idx
		end := i + len(tok)
		if (i == 0 || !isAlnum(name[i-1])) && (end == len(name) || !isAlnum(name[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func appendUnique(list []string, extra []string) []string {
	for _, e := range extra {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		dup := false
		for _, have := range list {
			if have == e {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, e)
		}
	}
	return list
}
