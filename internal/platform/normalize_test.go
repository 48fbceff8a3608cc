package platform

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		os      string
		arch    string
		want    Descriptor
		wantErr bool
	}{
		{"linux amd64", "linux", "amd64", Descriptor{OSLinux, ArchAMD64}, false},
		{"linux x86_64", "linux", "x86_64", Descriptor{OSLinux, ArchAMD64}, false},
		{"darwin arm64", "darwin", "arm64", Descriptor{OSMacOS, ArchARM64}, false},
		{"macos aarch64", "macOS", "aarch64", Descriptor{OSMacOS, ArchARM64}, false},
		{"windows x64", "Windows", "x64", Descriptor{OSWindows, ArchAMD64}, false},
		{"windows 386", "windows", "386", Descriptor{OSWindows, ArchX86}, false},
		{"linux i686", "linux", "i686", Descriptor{OSLinux, ArchX86}, false},
		{"whitespace", "  linux ", " amd64", Descriptor{OSLinux, ArchAMD64}, false},
		{"freebsd unsupported", "freebsd", "amd64", Descriptor{}, true},
		{"arm unsupported", "linux", "arm", Descriptor{}, true},
		{"riscv unsupported", "linux", "riscv64", Descriptor{}, true},
		{"empty", "", "", Descriptor{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.os, tt.arch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_ErrorCarriesRawValues(t *testing.T) {
	_, err := Normalize("plan9", "mips")

	var upe *UnsupportedPlatformError
	if !errors.As(err, &upe) {
		t.Fatalf("expected UnsupportedPlatformError, got %T: %v", err, err)
	}
	if upe.OS != "plan9" || upe.Arch != "mips" {
		t.Errorf("raw values = %q/%q, want plan9/mips", upe.OS, upe.Arch)
	}
}

func TestMapFamily(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debian", FamilyDebian},
		{"Ubuntu", FamilyDebian},
		{"rhel", FamilyRHEL},
		{"rocky", FamilyRHEL},
		{"fedora", FamilyFedora},
		{"opensuse", FamilySUSE},
		{"manjaro", FamilyArch},
		{"alpine", FamilyAlpine},
		{"slackware", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mapFamily(tt.input); got != tt.want {
				t.Errorf("mapFamily(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDescriptor_Naming(t *testing.T) {
	tests := []struct {
		desc    Descriptor
		exe     string
		archive string
	}{
		{Descriptor{OSLinux, ArchAMD64}, "loom", "tar.gz"},
		{Descriptor{OSMacOS, ArchARM64}, "loom", "tar.gz"},
		{Descriptor{OSWindows, ArchAMD64}, "loom.exe", "zip"},
	}

	for _, tt := range tests {
		t.Run(tt.desc.String(), func(t *testing.T) {
			if got := tt.desc.ExecutableName("loom"); got != tt.exe {
				t.Errorf("ExecutableName() = %q, want %q", got, tt.exe)
			}
			if got := tt.desc.ArchiveExt(); got != tt.archive {
				t.Errorf("ArchiveExt() = %q, want %q", got, tt.archive)
			}
		})
	}
}
