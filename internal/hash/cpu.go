package hash

import "runtime"

func cpuCount() int { return runtime.NumCPU() }
