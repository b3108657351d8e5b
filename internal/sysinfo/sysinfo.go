// Package sysinfo reports the host facts a run is sized and labelled with.
package sysinfo

import (
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/process"
)

// PhysicalCores is the default worker count. cpuid cannot always tell
// (e.g. some VMs), in which case the logical CPU count is used.
func PhysicalCores() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func BrandName() string {
	return strings.TrimSpace(cpuid.CPU.BrandName)
}

// MemoryMB samples the resident set size of this process, in megabytes
// (10^6 bytes). Where the OS does not expose it, the memory the Go runtime
// holds from the OS is reported instead.
func MemoryMB() float64 {
	if rss, err := residentBytes(); err == nil {
		return float64(rss) / 1e6
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Sys) / 1e6
}

func residentBytes() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}
