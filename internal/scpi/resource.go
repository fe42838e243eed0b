// internal/scpi/resource.go
package scpi

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ResourceKind is the transport family named by a VISA resource string.
type ResourceKind int

const (
	ResourceSocket ResourceKind = iota + 1
	ResourceSerial
)

// Resource is a parsed VISA resource name.
type Resource struct {
	Name    string
	Kind    ResourceKind
	Address string // host:port for sockets, device path for serial ports
}

// ParseResource understands TCPIP[n]::host::port::SOCKET and ASRL<port>::INSTR.
// GPIB, USB and VXI-11 resources are reported as connection errors.
func ParseResource(name string) (Resource, error) {
	parts := strings.Split(strings.TrimSpace(name), "::")
	head := strings.ToUpper(parts[0])

	switch {
	case strings.HasPrefix(head, "TCPIP"):
		if !isBoardIndex(head[len("TCPIP"):]) {
			return Resource{}, errors.Wrapf(ErrConnection, "resource %q: bad TCPIP board", name)
		}
		if len(parts) != 4 || !strings.EqualFold(parts[3], "SOCKET") {
			return Resource{}, errors.Wrapf(ErrConnection, "resource %q: only ::SOCKET resources are supported over TCPIP", name)
		}
		host := parts[1]
		port, err := strconv.ParseUint(parts[2], 10, 16)
		if host == "" || err != nil || port == 0 {
			return Resource{}, errors.Wrapf(ErrConnection, "resource %q: bad host or port", name)
		}
		return Resource{
			Name:    name,
			Kind:    ResourceSocket,
			Address: fmt.Sprintf("%s:%d", host, port),
		}, nil

	case strings.HasPrefix(head, "ASRL"):
		if len(parts) != 2 || !strings.EqualFold(parts[1], "INSTR") {
			return Resource{}, errors.Wrapf(ErrConnection, "resource %q: serial resources end with ::INSTR", name)
		}
		// keep the original case of device paths
		port := strings.TrimSpace(parts[0])[len("ASRL"):]
		if port == "" {
			return Resource{}, errors.Wrapf(ErrConnection, "resource %q: missing serial port", name)
		}
		if n, err := strconv.Atoi(port); err == nil {
			if n < 1 {
				return Resource{}, errors.Wrapf(ErrConnection, "resource %q: serial port numbers start at 1", name)
			}
			port = serialDevice(n)
		}
		return Resource{Name: name, Kind: ResourceSerial, Address: port}, nil
	}

	return Resource{}, errors.Wrapf(ErrConnection, "resource %q: unsupported interface", name)
}

func isBoardIndex(s string) bool {
	if s == "" {
		return true
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// serialDevice maps a VISA ASRL port number to the OS device name.
func serialDevice(n int) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("COM%d", n)
	}
	return fmt.Sprintf("/dev/ttyS%d", n-1)
}
