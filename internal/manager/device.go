package manager

import (
	"os/exec"

	"chatd/internal/common/fsutil"
)

// Device names reported in health snapshots.
const (
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

var (
	nvidiaNodes = []string{"/dev/nvidiactl", "/dev/nvidia0"}
	lookPath    = exec.LookPath
)

// GPUPresent reports whether an NVIDIA accelerator appears to be available.
func GPUPresent() bool {
	if fsutil.AnyExists(nvidiaNodes...) {
		return true
	}
	_, err := lookPath("nvidia-smi")
	return err == nil
}

// DetectDevice resolves a device preference ("auto", "cuda", "cpu") into the
// device to report and whether a GPU was detected. "cuda" without a GPU falls
// back to cpu.
func DetectDevice(pref string) (string, bool) {
	gpu := GPUPresent()
	switch pref {
	case DeviceCPU:
		return DeviceCPU, gpu
	default:
		if gpu {
			return DeviceCUDA, true
		}
		return DeviceCPU, false
	}
}
