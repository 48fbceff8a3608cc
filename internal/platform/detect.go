package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reads the host OS, kernel architecture and (on Linux) distribution
// through gopsutil and normalizes them.
//
// If gopsutil cannot query the host, detection falls back to runtime.GOOS and
// runtime.GOARCH. A cancelled context is a hard failure.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		RawOS:   runtime.GOOS,
		RawArch: runtime.GOARCH,
	}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
	} else {
		if hostInfo.OS != "" {
			info.RawOS = hostInfo.OS
		}
		if hostInfo.KernelArch != "" {
			info.RawArch = hostInfo.KernelArch
		}
		if hostInfo.OS == "linux" && hostInfo.Platform != "" {
			info.Distro = normalizeDistro(hostInfo.Platform)
			info.Family = mapFamily(hostInfo.PlatformFamily)
			info.Version = normalizeDistro(hostInfo.PlatformVersion)
		}
	}

	desc, err := Normalize(info.RawOS, info.RawArch)
	if err != nil {
		return nil, err
	}
	info.Descriptor = desc
	return info, nil
}

var current = sync.OnceValues(func() (*Info, error) {
	return NewDetector().Detect(context.Background())
})

// Current returns the host platform, detected once per process.
func Current() (*Info, error) {
	return current()
}
