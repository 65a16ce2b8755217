package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"proxyswitch/pkg/errors"
)

// Protocol values accepted on a profile.
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolSOCKS5 = "socks5"
)

// Profile represents a named upstream proxy target.
type Profile struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"` // stored as text, validated on use
	Protocol string `json:"protocol"`
}

// Validate checks that the profile can be applied to the live proxy
// configuration. The same validator backs UI-side pre-save checks and
// controller-side pre-apply checks.
func (p Profile) Validate() error {
	if p.Host == "" {
		return errors.ErrMissingHost
	}
	if _, err := p.PortNumber(); err != nil {
		return errors.ErrInvalidPort
	}
	return nil
}

// IsComplete reports whether the profile is usable as a proxy target.
func (p Profile) IsComplete() bool {
	return p.Validate() == nil
}

// PortNumber parses the textual port field.
func (p Profile) PortNumber() (int, error) {
	port, err := strconv.Atoi(p.Port)
	if err != nil {
		return 0, fmt.Errorf("port is not an integer: %q", p.Port)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// Scheme returns the fixed-proxy scheme for the profile. https profiles use
// the plain http proxy scheme: the host proxy setting does not distinguish a
// secure variant, and this mapping matches the documented behavior.
func (p Profile) Scheme() string {
	if p.Protocol == ProtocolSOCKS5 {
		return ProtocolSOCKS5
	}
	return ProtocolHTTP
}

// ValidProtocol reports whether the protocol string is one of the accepted
// values.
func ValidProtocol(protocol string) bool {
	switch protocol {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolSOCKS5:
		return true
	}
	return false
}

// ProfileSet maps profile keys to profiles. Keys are unique; insertion order
// is preserved for display.
type ProfileSet struct {
	keys  []string
	byKey map[string]Profile
}

// NewProfileSet returns an empty profile set.
func NewProfileSet() *ProfileSet {
	return &ProfileSet{byKey: make(map[string]Profile)}
}

// DefaultProfiles returns the profile set seeded on first run.
func DefaultProfiles() *ProfileSet {
	s := NewProfileSet()
	s.Put("burp", Profile{Name: "Burp Suite", Host: "127.0.0.1", Port: "8080", Protocol: ProtocolHTTP})
	s.Put("tor", Profile{Name: "Tor Browser", Host: "127.0.0.1", Port: "9050", Protocol: ProtocolSOCKS5})
	s.Put("custom", Profile{Name: "Custom Proxy", Host: "", Port: "", Protocol: ProtocolHTTP})
	return s
}

// Put inserts or replaces the profile under key, keeping first-insertion
// order.
func (s *ProfileSet) Put(key string, p Profile) {
	if s.byKey == nil {
		s.byKey = make(map[string]Profile)
	}
	if _, exists := s.byKey[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.byKey[key] = p
}

// Get returns the profile under key.
func (s *ProfileSet) Get(key string) (Profile, bool) {
	p, ok := s.byKey[key]
	return p, ok
}

// Keys returns the profile keys in insertion order.
func (s *ProfileSet) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of profiles in the set.
func (s *ProfileSet) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy of the set.
func (s *ProfileSet) Clone() *ProfileSet {
	out := NewProfileSet()
	for _, key := range s.keys {
		out.Put(key, s.byKey[key])
	}
	return out
}

// MarshalJSON encodes the set as a JSON object with keys in insertion order.
func (s *ProfileSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(s.byKey[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the order keys appear in.
func (s *ProfileSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("expected JSON object for profile set, got %v", tok)
	}

	s.keys = nil
	s.byKey = make(map[string]Profile)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string profile key, got %v", tok)
		}
		var p Profile
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("failed to decode profile '%s': %w", key, err)
		}
		s.Put(key, p)
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
