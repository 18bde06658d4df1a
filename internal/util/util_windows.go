//go:build windows

package util

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
)

// shells that launch viistream with a usable console
var shells = []string{
	"cmd.exe",
	"powershell.exe",
	"pwsh.exe",
	"wt.exe",
	"conhost.exe",
	"windowsterminal.exe",
}

// IsRunFromGUI reports whether viistream was double-clicked: either it has no
// console at all, or its parent is Explorer rather than a shell.
func IsRunFromGUI() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	parent := parentExeName()
	slog.Debug("startup parent", "exe", parent, "console", hwnd != 0)

	switch {
	case hwnd == 0:
		return true
	case isShell(parent):
		return false
	default:
		return strings.EqualFold(parent, "explorer.exe")
	}
}

// parentExeName walks one process snapshot and returns the parent's image name,
// or "" when it cannot be determined.
func parentExeName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	self := uint32(os.Getpid())
	var parentPID uint32
	names := map[uint32]string{}

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snapshot, &pe); err == nil; err = windows.Process32Next(snapshot, &pe) {
		if pe.ProcessID == self {
			parentPID = pe.ParentProcessID
		}
		names[pe.ProcessID] = windows.UTF16ToString(pe.ExeFile[:])
	}
	if parentPID == 0 {
		return ""
	}
	return names[parentPID]
}

func isShell(name string) bool {
	return slices.Contains(shells, strings.ToLower(name))
}
