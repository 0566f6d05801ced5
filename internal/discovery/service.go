package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
)

// Service is one announced ball, flattened from an mDNS entry.
type Service struct {
	Instance string
	Host     string
	Port     int
	IPv4     []string
	IPv6     []string
	Text     []string
}

// Browser yields announced services until ctx is cancelled or browsing
// ends, then closes the channel.
type Browser interface {
	Browse(ctx context.Context) (<-chan Service, error)
}

// TXTKeyID is the TXT record key carrying the ball id.
const TXTKeyID = "id"

// DeviceID reads the ball id from the TXT records.
func (s Service) DeviceID() (device.DeviceID, error) {
	for _, rec := range s.Text {
		key, value, ok := strings.Cut(rec, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), TXTKeyID) {
			continue
		}
		id, err := device.ParseDeviceID(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoDeviceID, value)
		}
		return id, nil
	}
	return 0, ErrNoDeviceID
}

// Address returns the binding address for the service.
func (s Service) Address() (string, error) {
	var ip string
	switch {
	case len(s.IPv4) > 0:
		ip = s.IPv4[0]
	case len(s.IPv6) > 0:
		ip = s.IPv6[0]
	default:
		return "", ErrNoAddress
	}

	if s.Port == 0 || s.Port == ball.DefaultPort {
		return ip, nil
	}
	return net.JoinHostPort(ip, strconv.Itoa(s.Port)), nil
}

// Binding resolves the service to a registry binding.
func (s Service) Binding() (device.Binding, error) {
	id, err := s.DeviceID()
	if err != nil {
		return device.Binding{}, err
	}
	addr, err := s.Address()
	if err != nil {
		return device.Binding{}, err
	}
	return device.Binding{ID: id, Address: addr}, nil
}
