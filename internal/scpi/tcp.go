// internal/scpi/tcp.go
package scpi

import (
	"net"

	"github.com/pkg/errors"
)

func openSocket(r Resource, opts Options) (Transport, error) {
	conn, err := net.DialTimeout("tcp", r.Address, opts.Timeout)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "resource %q: dial %s: %v", r.Name, r.Address, err)
	}
	return newStream(r.Name, conn, conn, opts.Timeout), nil
}
