package catalog

import (
	"fmt"
	"slices"
)

// OperatingSystem identifies the OS a download targets.
type OperatingSystem string

// Supported operating systems, in catalog sort order.
const (
	MacOS   OperatingSystem = "macos"
	Windows OperatingSystem = "windows"
	Linux   OperatingSystem = "linux"
)

// OperatingSystems lists every supported operating system in sort order.
var OperatingSystems = []OperatingSystem{MacOS, Windows, Linux}

// ParseOperatingSystem converts s into an OperatingSystem.
func ParseOperatingSystem(s string) (OperatingSystem, error) {
	os := OperatingSystem(s)
	if !slices.Contains(OperatingSystems, os) {
		return "", fmt.Errorf("unknown operating system %q", s)
	}
	return os, nil
}

// CPUArchitecture identifies the processor architecture a download targets.
type CPUArchitecture string

// Supported architectures, in catalog sort order.
const (
	AMD64   CPUArchitecture = "amd64"
	AArch64 CPUArchitecture = "aarch64"
)

// CPUArchitectures lists every supported architecture in sort order.
var CPUArchitectures = []CPUArchitecture{AMD64, AArch64}

// ParseCPUArchitecture converts s into a CPUArchitecture.
func ParseCPUArchitecture(s string) (CPUArchitecture, error) {
	arch := CPUArchitecture(s)
	if !slices.Contains(CPUArchitectures, arch) {
		return "", fmt.Errorf("unknown cpu architecture %q", s)
	}
	return arch, nil
}

func compareOS(a, b OperatingSystem) int {
	return rank(OperatingSystems, a) - rank(OperatingSystems, b)
}

func compareArch(a, b CPUArchitecture) int {
	return rank(CPUArchitectures, a) - rank(CPUArchitectures, b)
}

// rank places unknown values after known ones.
func rank[T comparable](order []T, v T) int {
	if i := slices.Index(order, v); i >= 0 {
		return i
	}
	return len(order)
}
