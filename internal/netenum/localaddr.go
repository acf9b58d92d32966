package netenum

import (
	"errors"
	"net"
)

// ErrNoLocalAddress is returned when no usable local IPv4 address exists.
var ErrNoLocalAddress = errors.New("no local IPv4 address found")

// LocalIPv4 returns the host's primary non-loopback IPv4 address, used as
// the base address for subnet derivation when none is given explicitly.
func LocalIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil || v4.IsLoopback() || v4.IsLinkLocalUnicast() {
				continue
			}
			return v4, nil
		}
	}

	return nil, ErrNoLocalAddress
}
