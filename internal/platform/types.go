// Package platform resolves the host operating system and CPU architecture
// into the closed set of platforms loom-core publishes release assets for.
//
// Detection reads the kernel-reported architecture and Linux distribution
// through gopsutil and falls back to the Go runtime values when the host
// cannot be queried. The resulting Descriptor is immutable and is derived
// once per process (see Current).
package platform

import "context"

// OS is a normalized operating system.
type OS string

const (
	OSMacOS   OS = "darwin"
	OSLinux   OS = "linux"
	OSWindows OS = "windows"
)

// Arch is a normalized CPU architecture.
type Arch string

const (
	ArchARM64 Arch = "arm64"
	ArchAMD64 Arch = "amd64"
	ArchX86   Arch = "x86"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Descriptor is the (OS, Arch) pair used to pick release assets.
type Descriptor struct {
	OS   OS
	Arch Arch
}

// String returns "os/arch".
func (d Descriptor) String() string {
	return string(d.OS) + "/" + string(d.Arch)
}

// IsWindows returns true if the platform is Windows.
func (d Descriptor) IsWindows() bool {
	return d.OS == OSWindows
}

// IsMacOS returns true if the platform is macOS.
func (d Descriptor) IsMacOS() bool {
	return d.OS == OSMacOS
}

// IsLinux returns true if the platform is Linux.
func (d Descriptor) IsLinux() bool {
	return d.OS == OSLinux
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (d Descriptor) IsAppleSilicon() bool {
	return d.OS == OSMacOS && d.Arch == ArchARM64
}

// ExecutableName appends the platform's executable suffix to base.
func (d Descriptor) ExecutableName(base string) string {
	if d.IsWindows() {
		return base + ".exe"
	}
	return base
}

// ArchiveExt is the extension loom-core uses for release archives on this platform.
func (d Descriptor) ArchiveExt() string {
	if d.IsWindows() {
		return "zip"
	}
	return "tar.gz"
}

// Info is a Descriptor plus the raw values it was derived from.
type Info struct {
	Descriptor
	RawOS   string // host-reported OS (e.g. "linux")
	RawArch string // host-reported architecture (e.g. "x86_64")
	Distro  string // distro ID, Linux only (e.g. "ubuntu")
	Family  string // canonical family, Linux only (e.g. "debian")
	Version string // distro version, Linux only (e.g. "22.04")
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
