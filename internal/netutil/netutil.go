package netutil

import "net"

// LocalIP discovers the host's outbound-facing interface address by opening
// a throwaway UDP connection to a well-known external address. No packet is
// sent; the OS just picks the route. Falls back to loopback.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
