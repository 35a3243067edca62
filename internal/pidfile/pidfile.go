// Package pidfile tracks running daemon instances in a shared, flocked PID
// file so the ps, kill and killall commands can find them.
package pidfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	pidFilePath = "/tmp/.orbit-core"
	processName = "orbit-core"
)

// PIDFile represents the JSON structure of the PID tracking file
type PIDFile struct {
	PIDs []int32 `json:"pids"`
}

var mu sync.Mutex

// withLockedPIDFile handles file opening, locking, reading, verification, and cleanup
func withLockedPIDFile(flags int, fn func(*os.File, []int32) error) error {
	dir := filepath.Dir(pidFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(pidFilePath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open PID file: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return err
	}
	defer unlockFile(file)

	var pids []int32
	stat, err := file.Stat()
	if err != nil {
		return err
	}

	if stat.Size() > 0 {
		var pidFile PIDFile
		if err := json.NewDecoder(file).Decode(&pidFile); err == nil {
			pids = pidFile.PIDs
		}
	}

	// Verify PIDs (auto-corrects file if needed)
	validPIDs, err := verifyPIDs(file, pids)
	if err != nil {
		return err
	}

	return fn(file, validPIDs)
}

// isDaemonProcess checks if a process is actually a running daemon instance
func isDaemonProcess(pid int32) bool {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return false
	}

	running, err := proc.IsRunning()
	if err != nil || !running {
		return false
	}

	name, err := proc.Name()
	if err != nil {
		return false
	}

	return strings.Contains(name, processName)
}

// writePIDFile writes PIDs to the file
func writePIDFile(file *os.File, pids []int32) error {
	pidFile := PIDFile{PIDs: pids}

	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&pidFile)
}

// verifyPIDs filters to only valid running processes and rewrites file if changed
func verifyPIDs(file *os.File, pids []int32) ([]int32, error) {
	valid := []int32{}
	for _, pid := range pids {
		if isDaemonProcess(pid) {
			valid = append(valid, pid)
		}
	}

	if len(valid) != len(pids) {
		if err := writePIDFile(file, valid); err != nil {
			return nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			return nil, err
		}
	}

	return valid, nil
}

// Register adds the current process PID to the tracking file
func Register() error {
	mu.Lock()
	defer mu.Unlock()

	currentPID := int32(os.Getpid())

	return withLockedPIDFile(os.O_RDWR|os.O_CREATE, func(file *os.File, pids []int32) error {
		for _, pid := range pids {
			if pid == currentPID {
				return nil
			}
		}

		pids = append(pids, currentPID)
		return writePIDFile(file, pids)
	})
}

// Unregister removes the current process PID from the tracking file
func Unregister() error {
	mu.Lock()
	defer mu.Unlock()

	currentPID := int32(os.Getpid())

	return withLockedPIDFile(os.O_RDWR, func(file *os.File, pids []int32) error {
		filtered := []int32{}
		for _, pid := range pids {
			if pid != currentPID {
				filtered = append(filtered, pid)
			}
		}
		return writePIDFile(file, filtered)
	})
}

// List returns all verified running daemon PIDs
func List() ([]int32, error) {
	mu.Lock()
	defer mu.Unlock()

	var result []int32
	err := withLockedPIDFile(os.O_RDWR|os.O_CREATE, func(file *os.File, pids []int32) error {
		result = pids
		return nil
	})

	return result, err
}

// Kill terminates a specific PID if it's a running daemon instance.
// Graceful shutdown: SIGTERM first, wait 5s, then SIGKILL if needed.
func Kill(pid int32) error {
	mu.Lock()
	defer mu.Unlock()

	if !isDaemonProcess(pid) {
		return fmt.Errorf("PID %d is not a running %s process", pid, processName)
	}

	proc, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to get process: %w", err)
	}

	if err := proc.Terminate(); err != nil {
		// Terminate failed, force kill immediately
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("failed to kill process: %w", err)
		}
	} else {
		for i := 0; i < 50; i++ {
			running, err := proc.IsRunning()
			if err != nil || !running {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}

		// Still running after the grace period, force kill
		running, err := proc.IsRunning()
		if err == nil && running {
			if err := proc.Kill(); err != nil {
				return fmt.Errorf("failed to force kill process: %w", err)
			}
		}
	}

	// Remove from tracking file (best-effort)
	withLockedPIDFile(os.O_RDWR, func(file *os.File, pids []int32) error {
		filtered := []int32{}
		for _, p := range pids {
			if p != pid {
				filtered = append(filtered, p)
			}
		}
		return writePIDFile(file, filtered)
	})

	return nil
}

// KillAll terminates all tracked daemon instances.
// Graceful shutdown: SIGTERM first, wait 5s, then SIGKILL if needed.
func KillAll() (int, error) {
	mu.Lock()
	defer mu.Unlock()

	var toKill []int32
	err := withLockedPIDFile(os.O_RDWR|os.O_CREATE, func(file *os.File, pids []int32) error {
		toKill = pids
		return writePIDFile(file, []int32{})
	})

	if err != nil {
		return 0, err
	}

	procs := make(map[int32]*process.Process)
	for _, pid := range toKill {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		if err := proc.Terminate(); err == nil {
			procs[pid] = proc
		}
	}

	for i := 0; i < 50; i++ {
		allExited := true
		for pid, proc := range procs {
			running, err := proc.IsRunning()
			if err != nil || !running {
				delete(procs, pid)
			} else {
				allExited = false
			}
		}
		if allExited {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	for _, proc := range procs {
		proc.Kill()
	}

	return len(toKill), nil
}

// GetProcessInfo returns PID and command line for a process
func GetProcessInfo(pid int32) (int32, string, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return 0, "", err
	}

	cmdline, err := proc.Cmdline()
	if err != nil {
		return pid, "", nil
	}

	return pid, cmdline, nil
}
