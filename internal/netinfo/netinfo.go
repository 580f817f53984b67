// Package netinfo discovers the address other devices on the LAN should use
// to reach the server, and renders the pairing QR code in the terminal.
package netinfo

import (
	"fmt"
	"io"
	"net"

	"github.com/jackpal/gateway"
	"github.com/mdp/qrterminal/v3"
)

// LocalIP returns the IPv4 address of the interface that routes to the
// default gateway. Falls back to a plain interface scan when gateway
// discovery fails, and to 127.0.0.1 as a last resort.
func LocalIP() string {
	if gwIP, err := gateway.DiscoverGateway(); err == nil {
		if ip, err := localIPForGateway(gwIP); err == nil {
			return ip.String()
		}
	}
	if ip, err := firstGlobalUnicastIPv4(); err == nil {
		return ip.String()
	}
	return "127.0.0.1"
}

// localIPForGateway finds the local IPv4 address in the same subnet as the
// gateway.
func localIPForGateway(gwIP net.IP) (net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ipv4 := ipnet.IP.To4()
			if ipv4 == nil || !ipv4.IsGlobalUnicast() || ipv4.IsLoopback() {
				continue
			}
			if ipnet.Contains(gwIP) {
				return ipv4, nil
			}
		}
	}
	return nil, fmt.Errorf("no local IPv4 address in the same subnet as gateway %s", gwIP)
}

func firstGlobalUnicastIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ipv4 := ipnet.IP.To4()
		if ipv4 != nil && ipv4.IsGlobalUnicast() && !ipv4.IsLoopback() {
			return ipv4, nil
		}
	}
	return nil, fmt.Errorf("no global unicast IPv4 address found")
}

// PrintQR writes a half-block terminal QR code encoding the given URL.
func PrintQR(w io.Writer, url string) {
	qrterminal.GenerateHalfBlock(url, qrterminal.M, w)
}
