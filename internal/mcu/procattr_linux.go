package mcu

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// driverProcAttr asks the kernel to signal the driver if this process dies.
func driverProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: unix.SIGTERM}
}
