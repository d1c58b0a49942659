package station

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSpec wraps every station validation failure.
var ErrInvalidSpec = errors.New("invalid station")

var bssidPattern = regexp.MustCompile(`^([a-fA-F0-9]{2}):([a-fA-F0-9]{2}):([a-fA-F0-9]{2}):([a-fA-F0-9]{2}):([a-fA-F0-9]{2}):([a-fA-F0-9]{2})$`)

// Spec is one configured access point and its probe target. It is read-only
// after loading.
type Spec struct {
	Name     string `json:"name" mapstructure:"name"`
	SSID     string `json:"ssid,omitempty" mapstructure:"ssid"`
	BSSID    string `json:"bssid" mapstructure:"bssid"`
	PSK      string `json:"-" mapstructure:"psk"`
	PingHost string `json:"pingHost" mapstructure:"pingHost"`
}

// IsBSSID reports whether s is six colon-separated hex octets.
func IsBSSID(s string) bool { return bssidPattern.MatchString(s) }

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if !IsBSSID(s.BSSID) {
		return fmt.Errorf("%w: station %q: bssid %q is not six colon-separated hex octets", ErrInvalidSpec, s.Name, s.BSSID)
	}
	if strings.TrimSpace(s.PingHost) == "" {
		return fmt.Errorf("%w: station %q: pingHost is required", ErrInvalidSpec, s.Name)
	}
	return nil
}

// ValidateAll validates every spec and rejects duplicate names.
func ValidateAll(specs []Spec) error {
	seen := make(map[string]struct{}, len(specs))
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stations[%d]: %w", i, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("stations[%d]: %w: duplicate name %q", i, ErrInvalidSpec, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
