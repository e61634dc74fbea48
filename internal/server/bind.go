// Port binder, per spec.md §4.8: try each port in [from, to] in turn,
// skipping past-port-in-use errors and aborting on anything else.
package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Bind iterates port ∈ [from, to] inclusive, attempting to listen on
// address for each. A bind error whose text mentions "port" or "in use"
// is treated as "try the next port"; any other error aborts immediately.
func Bind(address string, from, to int) (net.Listener, int, error) {
	for port := from; port <= to; port++ {
		addr := net.JoinHostPort(address, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, port, nil
		}
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "port") || strings.Contains(msg, "in use") {
			continue
		}
		return nil, 0, err
	}
	return nil, 0, fmt.Errorf("no free ports in range [%d, %d]", from, to)
}
