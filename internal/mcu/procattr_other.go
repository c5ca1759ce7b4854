//go:build !linux

package mcu

import "syscall"

func driverProcAttr() *syscall.SysProcAttr {
	return nil
}
