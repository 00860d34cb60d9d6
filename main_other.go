//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// the global shortcut needs the main thread on macOS
	mainthread.Init(execute)
}
