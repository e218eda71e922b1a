package system

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a snapshot of process and host resource use.
type Usage struct {
	RSSBytes       uint64
	CPUPercent     float64
	MemUsedPct     float64
	Goroutines     int
	HeapInUseBytes uint64
}

// Snapshot reads the current resource usage of this process. Fields that
// cannot be read on the platform are left zero and reported in the error.
func Snapshot() (Usage, error) {
	var u Usage
	var errs []error

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	u.HeapInUseBytes = ms.HeapInuse
	u.Goroutines = runtime.NumGoroutine()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		errs = append(errs, err)
	} else {
		if mi, err := proc.MemoryInfo(); err == nil {
			u.RSSBytes = mi.RSS
		} else {
			errs = append(errs, err)
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			u.CPUPercent = cpu
		} else {
			errs = append(errs, err)
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		u.MemUsedPct = vm.UsedPercent
	} else {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return u, fmt.Errorf("system snapshot: %v", errs)
	}
	return u, nil
}

// String formats the usage for the performance report.
func (u Usage) String() string {
	return fmt.Sprintf("RSS %.1f MB | Heap %.1f MB | CPU %.1f%% | Host mem %.1f%% | Goroutines %d",
		float64(u.RSSBytes)/(1<<20), float64(u.HeapInUseBytes)/(1<<20), u.CPUPercent, u.MemUsedPct, u.Goroutines)
}
