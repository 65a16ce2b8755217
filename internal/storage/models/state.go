package models

// State is an immutable snapshot of the persisted settings, read atomically
// relative to reconciliation. Observers never hold a locally authoritative
// copy; they refresh from the store on every change notification.
type State struct {
	Profiles      *ProfileSet `json:"profiles"`
	ActiveProfile string      `json:"activeProfileKey"`
	ProxyEnabled  bool        `json:"proxyEnabled"`
}

// FallbackProfileKey is used when the active profile key no longer resolves.
const FallbackProfileKey = "burp"

// Active resolves the active profile. A stale key falls back to the default
// key, then to the insertion-first profile. This is explicit fallback policy,
// not an error.
func (s *State) Active() (string, Profile, bool) {
	if s.Profiles == nil || s.Profiles.Len() == 0 {
		return "", Profile{}, false
	}
	if p, ok := s.Profiles.Get(s.ActiveProfile); ok {
		return s.ActiveProfile, p, true
	}
	if p, ok := s.Profiles.Get(FallbackProfileKey); ok {
		return FallbackProfileKey, p, true
	}
	key := s.Profiles.Keys()[0]
	p, _ := s.Profiles.Get(key)
	return key, p, true
}
