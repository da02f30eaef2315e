// Package fingerprint derives a stable device identifier from machine
// characteristics. The fingerprint binds a license validation to a
// specific device without sending raw hardware details to the server.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// cacheDuration bounds how long a computed fingerprint is reused.
// Network interfaces can change (docking, VPN), so it is not cached
// for the process lifetime.
const cacheDuration = 1 * time.Hour

// Manager computes and caches the device fingerprint.
type Manager struct {
	mu          sync.RWMutex
	cached      string
	cacheExpiry time.Time
}

// NewManager creates a fingerprint manager.
func NewManager() *Manager {
	return &Manager{}
}

// Fingerprint returns the SHA-256 hex digest of the device's stable
// characteristics: hostname, primary MAC address, OS and architecture.
// Individual lookups degrade to placeholders rather than failing; a
// partially derived fingerprint is still stable for the same machine.
func (m *Manager) Fingerprint() string {
	m.mu.RLock()
	if m.cached != "" && time.Now().Before(m.cacheExpiry) {
		defer m.mu.RUnlock()
		return m.cached
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != "" && time.Now().Before(m.cacheExpiry) {
		return m.cached
	}

	parts := []string{
		hostname(),
		primaryMAC(),
		runtime.GOOS,
		runtime.GOARCH,
	}
	digest := sha256.Sum256([]byte(strings.Join(parts, "|")))

	m.cached = hex.EncodeToString(digest[:])
	m.cacheExpiry = time.Now().Add(cacheDuration)
	return m.cached
}

// Invalidate drops the cached fingerprint so the next call recomputes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = ""
	m.cacheExpiry = time.Time{}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		slog.Warn("hostname unavailable for fingerprint", slog.Any("error", err))
		return "unknown-host"
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// primaryMAC returns the MAC of the first up, non-loopback interface,
// falling back to any interface with hardware address.
func primaryMAC() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		slog.Warn("network interfaces unavailable for fingerprint", slog.String("error", err.Error()))
		return "no-mac"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := usableMAC(iface); mac != "" {
			return mac
		}
	}
	for _, iface := range interfaces {
		if mac := usableMAC(iface); mac != "" {
			return mac
		}
	}
	return "no-mac"
}

func usableMAC(iface net.Interface) string {
	if len(iface.HardwareAddr) == 0 {
		return ""
	}
	mac := iface.HardwareAddr.String()
	if mac == "" || mac == "00:00:00:00:00:00" {
		return ""
	}
	return mac
}

// Describe returns the raw components for diagnostics. The server only
// ever sees the digest, never this.
func (m *Manager) Describe() string {
	return fmt.Sprintf("host=%s mac=%s os=%s arch=%s",
		hostname(), primaryMAC(), runtime.GOOS, runtime.GOARCH)
}
