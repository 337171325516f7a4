package utils

import (
	"log"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryProbe reports available system memory in bytes.
type MemoryProbe func() (uint64, error)

// SystemMemory reads available memory through gopsutil.
func SystemMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// CheckTabBudget warns when opening tabs browser tabs of roughly perTabMB each
// would not fit in the currently available memory. It never blocks the run.
// It returns true when the tabs are expected to fit.
func CheckTabBudget(probe MemoryProbe, tabs, perTabMB int) bool {
	available, err := probe()
	if err != nil {
		log.Printf("WARN: Could not read available memory: %v", err)
		return true
	}

	needed := uint64(tabs) * uint64(perTabMB) * 1024 * 1024
	if needed > available {
		log.Printf("WARN: %d tabs need about %d MB but only %d MB are available. The browser may become slow.",
			tabs, needed/1024/1024, available/1024/1024)
		return false
	}
	log.Printf("Memory check: %d tabs need about %d MB, %d MB available.", tabs, needed/1024/1024, available/1024/1024)
	return true
}
