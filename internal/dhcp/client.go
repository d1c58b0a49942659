// Package dhcp acquires an address on an associated interface by supervising
// a foreground dhclient.
package dhcp

import (
	"log/slog"
	"time"

	"github.com/loykin/stationprobe/internal/process"
)

const (
	DefaultBinary = "/usr/sbin/dhclient"
	daemonName    = "dhclient"

	// BoundEvent prefixes the dhclient line announcing an acquired lease.
	BoundEvent = "bound to"
)

type Config struct {
	Binary    string        // defaults to DefaultBinary
	KillGrace time.Duration // see process.Spec.KillGrace
}

// Client is the lease controller.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Lease is a bound address held by a running dhclient.
type Lease struct {
	handle *process.Handle
}

// Release stops dhclient and waits for it to exit. It is idempotent.
func (l *Lease) Release() error { return l.handle.Stop() }

// Done is closed when dhclient has exited.
func (l *Lease) Done() <-chan struct{} { return l.handle.Done() }

// Acquire runs dhclient in the foreground on dev and returns once it reports
// a bound lease, or fails when it exits or timeout elapses first.
func (c *Client) Acquire(dev string, timeout time.Duration) (*Lease, error) {
	h, err := process.Start(process.Spec{
		Name: daemonName,
		Path: c.cfg.Binary,
		// -d keeps dhclient attached so the lease lives exactly as long as the handle
		Args:         []string{"-d", "-v", dev},
		Ready:        process.HasPrefix(BoundEvent),
		ReadyTimeout: timeout,
		KillGrace:    c.cfg.KillGrace,
		Logger:       c.logger.With(slog.String("device", dev)),
	})
	if err != nil {
		return nil, err
	}
	return &Lease{handle: h}, nil
}
