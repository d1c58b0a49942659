package station

import (
	"time"

	"github.com/loykin/stationprobe/internal/dhcp"
	"github.com/loykin/stationprobe/internal/wifi"
)

// WiFi adapts a wpa_supplicant controller to Associator.
type WiFi struct {
	Supplicant *wifi.Supplicant
}

func (w WiFi) Associate(dev string, st Spec, timeout time.Duration) (Link, error) {
	l, err := w.Supplicant.Connect(dev, wifi.Network{SSID: st.SSID, BSSID: st.BSSID, PSK: st.PSK}, timeout)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// DHCP adapts a dhclient controller to Leaser.
type DHCP struct {
	Client *dhcp.Client
}

func (d DHCP) Acquire(dev string, timeout time.Duration) (Lease, error) {
	l, err := d.Client.Acquire(dev, timeout)
	if err != nil {
		return nil, err
	}
	return l, nil
}
