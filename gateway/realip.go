package gateway

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Addr is the client address attributed to a session, after proxy header
// resolution.
type Addr struct {
	IP   string
	Port int
}

func (a Addr) String() string {
	return a.IP + ":" + strconv.Itoa(a.Port)
}

// ResolveAddr recovers the real client address behind proxies.
// CF-Connecting-IP wins over X-Real-IP, which wins over the first
// X-Forwarded-For hop; the port comes from X-Real-Port then
// X-Forwarded-Port, defaulting to the transport port when neither
// header is set. A header IP with an unparseable or zero header port
// falls back to the transport address entirely.
func ResolveAddr(r *http.Request) Addr {
	transport := transportAddr(r)

	ip := r.Header.Get("CF-Connecting-IP")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		forwarded, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		ip = strings.TrimSpace(forwarded)
	}

	port := transport.Port
	portHeader := r.Header.Get("X-Real-Port")
	if portHeader == "" {
		portHeader = r.Header.Get("X-Forwarded-Port")
	}
	if portHeader != "" {
		port, _ = strconv.Atoi(portHeader)
	}

	if ip == "" || port == 0 {
		return transport
	}
	return Addr{IP: ip, Port: port}
}

func transportAddr(r *http.Request) Addr {
	host, portStr, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return Addr{IP: r.RemoteAddr}
	}
	port, _ := strconv.Atoi(portStr)
	return Addr{IP: host, Port: port}
}
