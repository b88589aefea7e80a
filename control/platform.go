// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Runtime and CPU feature probes.

package control

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// RegisterPlatformProbes exposes CPU count, GOMAXPROCS and the CPU features
// relevant to the spin paths.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("platform.cpu_features", func() any {
		return map[string]bool{
			"x86.avx2":      cpu.X86.HasAVX2,
			"x86.sse42":     cpu.X86.HasSSE42,
			"arm64.atomics": cpu.ARM64.HasATOMICS,
		}
	})
}
