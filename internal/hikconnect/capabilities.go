package hikconnect

import (
	"encoding/json"
	"strings"
)

type Capability uint8

const (
	CapPTZ Capability = 1 << iota
	CapAudio
	CapMotion
	CapNightVision
)

// capabilityTokens maps vendor support-function text onto flags. Matching is
// case-sensitive substring containment.
var capabilityTokens = []struct {
	token string
	flag  Capability
}{
	{"PTZ", CapPTZ},
	{"Audio", CapAudio},
	{"Motion Detection", CapMotion},
	{"Night Vision", CapNightVision},
}

// CapabilitySet is computed once when a device is ingested.
type CapabilitySet uint8

func ParseCapabilities(functions []string) CapabilitySet {
	var set CapabilitySet
	for _, fn := range functions {
		for _, t := range capabilityTokens {
			if strings.Contains(fn, t.token) {
				set |= CapabilitySet(t.flag)
			}
		}
	}
	return set
}

func (s CapabilitySet) Has(c Capability) bool { return s&CapabilitySet(c) != 0 }

type capabilityJSON struct {
	PTZ         bool `json:"ptz"`
	Audio       bool `json:"audio"`
	Motion      bool `json:"motion"`
	NightVision bool `json:"nightVision"`
}

func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(capabilityJSON{
		PTZ:         s.Has(CapPTZ),
		Audio:       s.Has(CapAudio),
		Motion:      s.Has(CapMotion),
		NightVision: s.Has(CapNightVision),
	})
}

func (s *CapabilitySet) UnmarshalJSON(b []byte) error {
	var v capabilityJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var set CapabilitySet
	if v.PTZ {
		set |= CapabilitySet(CapPTZ)
	}
	if v.Audio {
		set |= CapabilitySet(CapAudio)
	}
	if v.Motion {
		set |= CapabilitySet(CapMotion)
	}
	if v.NightVision {
		set |= CapabilitySet(CapNightVision)
	}
	*s = set
	return nil
}
