// Package wifi associates a wireless interface with one access point by
// supervising a wpa_supplicant instance fed a generated network block.
package wifi

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/stationprobe/internal/process"
)

const (
	DefaultBinary = "/usr/sbin/wpa_supplicant"
	daemonName    = "wpa_supplicant"
)

// Network identifies the access point to associate with.
type Network struct {
	SSID  string // optional
	BSSID string // required, aa:bb:cc:dd:ee:ff
	PSK   string // optional
}

// Config tunes how wpa_supplicant is launched.
type Config struct {
	Binary    string        // defaults to DefaultBinary
	TempDir   string        // where network blocks are written; defaults to os.TempDir()
	KillGrace time.Duration // see process.Spec.KillGrace
}

// Supplicant is the association controller.
type Supplicant struct {
	cfg    Config
	logger *slog.Logger
}

func NewSupplicant(cfg Config, logger *slog.Logger) *Supplicant {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supplicant{cfg: cfg, logger: logger}
}

// Link is an established association.
type Link struct {
	handle     *process.Handle
	configPath string
}

// Disconnect stops wpa_supplicant and waits for it to exit. The generated
// network block is removed exactly once no matter how the daemon ended.
func (l *Link) Disconnect() error { return l.handle.Stop() }

// ConfigPath is the generated network block backing this link.
func (l *Link) ConfigPath() string { return l.configPath }

// Done is closed when the supplicant has exited.
func (l *Link) Done() <-chan struct{} { return l.handle.Done() }

// Connect writes a network block for n, starts wpa_supplicant on dev and
// returns once the device reports a completed connection to n.BSSID. On any
// failure the network block is already gone when Connect returns.
func (s *Supplicant) Connect(dev string, n Network, timeout time.Duration) (*Link, error) {
	path := filepath.Join(s.cfg.TempDir, "wpa_supplicant_config_"+uuid.NewString()+".conf")
	if err := os.WriteFile(path, []byte(NetworkBlock(n)), 0o600); err != nil {
		return nil, fmt.Errorf("write supplicant config: %w", err)
	}
	log := s.logger.With(slog.String("device", dev), slog.String("bssid", n.BSSID))

	h, err := process.Start(process.Spec{
		Name:         daemonName,
		Path:         s.cfg.Binary,
		Args:         []string{"-i" + dev, "-c" + path},
		Ready:        process.HasPrefix(ConnectedEvent(dev, n.BSSID)),
		ReadyTimeout: timeout,
		KillGrace:    s.cfg.KillGrace,
		Cleanup:      removeConfig(path),
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	return &Link{handle: h, configPath: path}, nil
}

// NetworkBlock renders the wpa_supplicant configuration for n.
func NetworkBlock(n Network) string {
	var b strings.Builder
	b.WriteString("network={\n")
	if n.SSID != "" {
		b.WriteString("  ssid=" + strconv.Quote(n.SSID) + "\n")
	}
	b.WriteString("  bssid=" + n.BSSID + "\n")
	if n.PSK != "" {
		b.WriteString("  psk=" + strconv.Quote(n.PSK) + "\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// ConnectedEvent is the log line prefix wpa_supplicant prints once dev is
// associated with bssid.
func ConnectedEvent(dev, bssid string) string {
	return fmt.Sprintf("%s: CTRL-EVENT-CONNECTED - Connection to %s completed", dev, strings.ToLower(bssid))
}

func removeConfig(path string) func() error {
	return func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove supplicant config: %w", err)
		}
		return nil
	}
}
