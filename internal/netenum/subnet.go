// Package netenum enumerates IPv4 subnets into probe targets.
package netenum

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/httpmap/httpmap/internal/config"
)

// Subnet is an IPv4 address range: a base address plus a prefix length.
// The zero value is not usable; construct with New.
type Subnet struct {
	network   uint32
	broadcast uint32
	prefix    int
}

// New derives the subnet containing base for the given prefix length.
// Prefix lengths outside 1-31 are rejected with config.ErrInvalidPrefix:
// /0 spans the whole address space and /32 has no usable hosts once the
// network and broadcast addresses are excluded.
func New(base net.IP, prefix int) (Subnet, error) {
	if prefix < 1 || prefix > 31 {
		return Subnet{}, fmt.Errorf("%w: got %d", config.ErrInvalidPrefix, prefix)
	}
	v4 := base.To4()
	if v4 == nil {
		return Subnet{}, fmt.Errorf("base address %s is not IPv4", base)
	}

	hostBits := uint(32 - prefix)
	addr := binary.BigEndian.Uint32(v4)
	network := addr &^ (1<<hostBits - 1)

	return Subnet{
		network:   network,
		broadcast: network | (1<<hostBits - 1),
		prefix:    prefix,
	}, nil
}

// Prefix returns the subnet prefix length.
func (s Subnet) Prefix() int { return s.prefix }

// Network returns the subnet's network address.
func (s Subnet) Network() net.IP { return u32ToIP(s.network) }

// Broadcast returns the subnet's broadcast address.
func (s Subnet) Broadcast() net.IP { return u32ToIP(s.broadcast) }

// HostCount returns the number of usable host addresses, excluding the
// network and broadcast addresses.
func (s Subnet) HostCount() int {
	return int(s.broadcast-s.network) - 1
}

// String renders the subnet in CIDR notation.
func (s Subnet) String() string {
	return fmt.Sprintf("%s/%d", s.Network(), s.prefix)
}

// Hosts calls fn for every usable host address in ascending numeric order,
// excluding the network and broadcast addresses. Iteration stops early when
// fn returns false. The sequence is restartable: each call walks the subnet
// from the beginning.
func (s Subnet) Hosts(fn func(ip net.IP) bool) {
	for addr := s.network + 1; addr < s.broadcast; addr++ {
		if !fn(u32ToIP(addr)) {
			return
		}
	}
}

// Target is one (address, port) probe candidate.
type Target struct {
	IP   net.IP
	Port int
}

// Scheme returns the URL scheme implied by the target's port.
// Only the designated TLS port gets HTTPS.
func (t Target) Scheme() string {
	if t.Port == 443 {
		return "https"
	}
	return "http"
}

// URL returns the root URL probed for this target.
func (t Target) URL() string {
	return fmt.Sprintf("%s://%s/", t.Scheme(), t.Addr())
}

// Addr returns the host:port form of the target.
func (t Target) Addr() string {
	return net.JoinHostPort(t.IP.String(), fmt.Sprintf("%d", t.Port))
}

// Targets expands the subnet's hosts against the port list, calling fn for
// each (address, port) pair. Addresses form the outer loop and ports the
// inner loop, both in order, so the sequence is deterministic. Iteration
// stops early when fn returns false.
func (s Subnet) Targets(ports []int, fn func(t Target) bool) {
	s.Hosts(func(ip net.IP) bool {
		for _, port := range ports {
			if !fn(Target{IP: ip, Port: port}) {
				return false
			}
		}
		return true
	})
}

// TargetCount returns the total number of probe targets for the port list.
func (s Subnet) TargetCount(ports []int) int {
	return s.HostCount() * len(ports)
}

func u32ToIP(addr uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, addr)
	return ip
}
