package platform

import (
	"fmt"
	"strings"
)

// UnsupportedPlatformError is returned when the host OS or architecture is
// not one loom-core ships binaries for.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: os=%q arch=%q", e.OS, e.Arch)
}

// osTable maps host-reported OS names to normalized values.
var osTable = map[string]OS{
	"darwin":  OSMacOS,
	"macos":   OSMacOS,
	"mac":     OSMacOS,
	"osx":     OSMacOS,
	"linux":   OSLinux,
	"windows": OSWindows,
	"win":     OSWindows,
	"win32":   OSWindows,
	"win64":   OSWindows,
}

// archTable maps host-reported architecture names to normalized values.
var archTable = map[string]Arch{
	"amd64":   ArchAMD64,
	"x86_64":  ArchAMD64,
	"x64":     ArchAMD64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
	"386":     ArchX86,
	"i386":    ArchX86,
	"i686":    ArchX86,
	"x86":     ArchX86,
}

// familyMap maps distribution family strings to canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// Normalize maps raw OS and architecture strings onto a Descriptor.
func Normalize(rawOS, rawArch string) (Descriptor, error) {
	goos, okOS := ParseOS(rawOS)
	arch, okArch := ParseArch(rawArch)
	if !okOS || !okArch {
		return Descriptor{}, &UnsupportedPlatformError{OS: rawOS, Arch: rawArch}
	}
	return Descriptor{OS: goos, Arch: arch}, nil
}

// ParseOS looks up a single OS name.
func ParseOS(raw string) (OS, bool) {
	goos, ok := osTable[strings.ToLower(strings.TrimSpace(raw))]
	return goos, ok
}

// ParseArch looks up a single architecture name.
func ParseArch(raw string) (Arch, bool) {
	arch, ok := archTable[strings.ToLower(strings.TrimSpace(raw))]
	return arch, ok
}

// normalizeDistro converts distro IDs and versions to lowercase for consistency.
func normalizeDistro(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	if canonical, ok := familyMap[normalizeDistro(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}
