package title

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"clickloop/internal/domain"
)

var reservedRanges = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", c, err))
		}
		out = append(out, n)
	}
	return out
}

// isReserved reports whether ip is loopback, link-local or in a private range.
func isReserved(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, n := range reservedRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// publicOnlyTransport resolves each host once at dial time, refuses reserved
// addresses and connects to the checked IP, so a rebinding DNS answer cannot
// slip a private address in between check and connect.
func publicOnlyTransport() *http.Transport {
	resolve := net.DefaultResolver.LookupIPAddr
	return &http.Transport{
		DialContext:           guardedDial(resolve),
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

type resolveFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

func guardedDial(resolve resolveFunc) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		ips, err := resolve(ctx, host)
		if err != nil {
			return nil, domain.NewSubSystemError("title", "title.dial", domain.ErrUpstream, err.Error())
		}
		if len(ips) == 0 {
			return nil, domain.NewSubSystemError("title", "title.dial", domain.ErrUpstream, "no addresses for "+host)
		}
		for _, ip := range ips {
			if isReserved(ip.IP) {
				return nil, domain.NewSubSystemError("title", "title.dial", domain.ErrPrivateHost,
					fmt.Sprintf("%s -> %s", host, ip.IP))
			}
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
	}
}
