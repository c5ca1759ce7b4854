package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const vgaClassMarker = "VGA compatible controller:"

// Executor abstracts command execution for the bus lister.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// BusLister reports the PCI addresses of VGA-class controllers.
type BusLister interface {
	VGAControllers(ctx context.Context) ([]string, error)
}

// LspciLister lists controllers by running lspci.
type LspciLister struct {
	binary string
	exec   Executor
}

// NewLspciLister constructs a lister for the provided lspci binary.
func NewLspciLister(binary string) *LspciLister {
	return NewLspciListerWithExecutor(binary, nil)
}

// NewLspciListerWithExecutor allows injecting a custom executor for testing.
func NewLspciListerWithExecutor(binary string, exec Executor) *LspciLister {
	if exec == nil {
		exec = commandExecutor{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "lspci"
	}
	return &LspciLister{binary: binary, exec: exec}
}

// VGAControllers runs lspci and returns controller addresses in listing order.
func (l *LspciLister) VGAControllers(ctx context.Context) ([]string, error) {
	output, err := l.exec.Run(ctx, l.binary, nil)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("run %s: %w: %s", l.binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("run %s: %w", l.binary, err)
	}
	return ParseVGAControllers(string(output)), nil
}

// ParseVGAControllers extracts the address column of VGA controller lines.
func ParseVGAControllers(output string) []string {
	var addresses []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, vgaClassMarker) {
			continue
		}
		address, _, ok := strings.Cut(line, " ")
		if !ok || address == "" {
			continue
		}
		addresses = append(addresses, address)
	}
	return addresses
}
