package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// ErrInvalidProxyAddress is returned for a proxy address that is not host:port.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// NewProxyHTTPClient creates an HTTP client that routes every connection
// through the SOCKS5 proxy at proxyAddress ("host:port"). Pass it to
// WithHTTPClient.
//
// The proxy is not contacted here; a dead proxy shows up as transport
// errors on the first fetch.
func NewProxyHTTPClient(proxyAddress string, timeout time.Duration) (*http.Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, proxyAddress)
	}

	// Shop proxies rarely require auth.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext:         dialContext(dialer),
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// dialContext adapts a proxy.Dialer to http.Transport.DialContext.
//
// Design decision: Dialers without context support are dialed in a
// goroutine so that cancellation still returns promptly. The abandoned
// dial may finish in the background.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if r := <-resultCh; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress reports whether address is host:port with a port in
// 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
