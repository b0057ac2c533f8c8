// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// discoverParallelism bounds concurrent probe dials.
const discoverParallelism = 32

// Endpoint identifies one reachable controller.
type Endpoint struct {
	Host string
	Port int
}

// Address returns the endpoint as a connect string for TCPClient.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Discover probes the given hosts for a listening controller service
// port and returns the reachable endpoints sorted by host. A host that
// refuses or times out within timeout is skipped silently; discovery
// identifies candidates only, it speaks no protocol.
func Discover(ctx context.Context, hosts []string, port int, timeout time.Duration) []Endpoint {
	if port == 0 {
		port = DefaultPort
	}

	var (
		mu    sync.Mutex
		found []Endpoint
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, discoverParallelism)
	dialer := net.Dialer{Timeout: timeout}

probe:
	for _, host := range hosts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break probe
		}
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer func() { <-sem }()

			endpoint := Endpoint{Host: host, Port: port}
			conn, err := dialer.DialContext(ctx, "tcp", endpoint.Address())
			if err != nil {
				return
			}
			conn.Close()
			mu.Lock()
			found = append(found, endpoint)
			mu.Unlock()
		}(host)
	}
	wg.Wait()

	sort.Slice(found, func(i, j int) bool { return found[i].Host < found[j].Host })
	return found
}
