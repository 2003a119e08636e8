package tunnel

import (
	"fmt"
	"strings"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Stats is a point-in-time traffic summary of a live interface.
type Stats struct {
	Peers           int
	LatestHandshake time.Time
	ReceiveBytes    int64
	TransmitBytes   int64
}

// StatsReader reads live statistics for an interface.
type StatsReader interface {
	Stats(iface string) (*Stats, error)
}

// DeviceStats reads interface statistics through wgctrl, which covers both
// kernel devices and wireguard-go UAPI sockets.
type DeviceStats struct {
	client *wgctrl.Client
}

// NewDeviceStats opens a wgctrl client.
func NewDeviceStats() (*DeviceStats, error) {
	c, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("wgctrl init: %w", err)
	}
	return &DeviceStats{client: c}, nil
}

// Stats sums traffic over all peers of iface and reports the most recent
// handshake of any peer.
func (d *DeviceStats) Stats(iface string) (*Stats, error) {
	dev, err := d.client.Device(iface)
	if err != nil {
		return nil, fmt.Errorf("wg device %s: %w", iface, err)
	}
	return summarize(dev), nil
}

// Close releases the wgctrl client.
func (d *DeviceStats) Close() error {
	return d.client.Close()
}

func summarize(dev *wgtypes.Device) *Stats {
	st := &Stats{Peers: len(dev.Peers)}
	for _, p := range dev.Peers {
		st.ReceiveBytes += p.ReceiveBytes
		st.TransmitBytes += p.TransmitBytes
		if p.LastHandshakeTime.After(st.LatestHandshake) {
			st.LatestHandshake = p.LastHandshakeTime
		}
	}
	return st
}

// PublicKey derives the interface public key from the PrivateKey in raw
// configuration text. It returns "" when there is no parseable key.
func PublicKey(rawConfig string) string {
	if rawConfig == "" {
		return ""
	}
	doc, err := parseINI(strings.NewReader(rawConfig))
	if err != nil {
		return ""
	}
	priv := doc.value("Interface", "PrivateKey")
	if priv == "" {
		return ""
	}
	key, err := wgtypes.ParseKey(priv)
	if err != nil {
		return ""
	}
	return key.PublicKey().String()
}
