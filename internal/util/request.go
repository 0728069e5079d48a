package util

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
)

// GenerateRequestID returns a short human friendly id, eg. quartz_sifting_03fa
func GenerateRequestID() string {
	actions := []string{
		"digging", "sifting", "hauling", "panning", "drilling",
		"tunnelling", "smelting", "sorting", "washing", "surveying",
		"blasting", "crushing", "grading", "assaying", "loading",
	}
	ores := []string{
		"quartz", "pyrite", "galena", "copper", "silver",
		"garnet", "topaz", "basalt", "granite", "mica",
		"opal", "jasper", "onyx", "cobalt", "nickel",
	}

	ore := ores[rand.Intn(len(ores))]
	action := actions[rand.Intn(len(actions))]
	suffix := fmt.Sprintf("%04x", rand.Intn(65536))

	return fmt.Sprintf("%s_%s_%s", ore, action, suffix)
}

// GetClientIP returns the caller address, honouring X-Forwarded-For and
// X-Real-IP only when the direct peer sits inside a trusted CIDR
func GetClientIP(r *http.Request, trustProxyHeaders bool, trustedCIDRs []*net.IPNet) string {
	if !trustProxyHeaders {
		return remoteHost(r)
	}

	sourceIP := getSourceIP(r)
	if sourceIP == nil || !isIPInTrustedCIDRs(sourceIP, trustedCIDRs) {
		return remoteHost(r)
	}

	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func getSourceIP(r *http.Request) net.IP {
	return net.ParseIP(remoteHost(r))
}
