package killmail

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Killmail is one killstream event. Only the fields used for routing and
// delivery are typed; Raw keeps the payload exactly as received.
type Killmail struct {
	ID            uint64     `json:"killmail_id"`
	Time          time.Time  `json:"killmail_time"`
	SolarSystemID uint64     `json:"solar_system_id"`
	Attackers     []Attacker `json:"attackers"`
	Victim        Victim     `json:"victim"`
	Zkb           Zkb        `json:"zkb"`

	// Raw is the original payload. Empty for killmails built in code.
	Raw []byte `json:"-"`
}

// Attacker identity fields are optional; any may be redacted upstream.
type Attacker struct {
	AllianceID     *uint64 `json:"alliance_id,omitempty"`
	CharacterID    *uint64 `json:"character_id,omitempty"`
	CorporationID  *uint64 `json:"corporation_id,omitempty"`
	ShipTypeID     *uint64 `json:"ship_type_id,omitempty"`
	WeaponTypeID   *uint64 `json:"weapon_type_id,omitempty"`
	DamageDone     uint64  `json:"damage_done"`
	FinalBlow      bool    `json:"final_blow"`
	SecurityStatus float64 `json:"security_status"`
}

// Victim always carries a corporation and a ship.
type Victim struct {
	AllianceID    *uint64 `json:"alliance_id,omitempty"`
	CharacterID   *uint64 `json:"character_id,omitempty"`
	CorporationID uint64  `json:"corporation_id"`
	ShipTypeID    uint64  `json:"ship_type_id"`
	DamageTaken   uint64  `json:"damage_taken"`
}

// Zkb is zKillboard's metadata block.
type Zkb struct {
	LocationID uint64  `json:"locationID,omitempty"`
	Hash       string  `json:"hash,omitempty"`
	TotalValue float64 `json:"totalValue,omitempty"`
	Points     int64   `json:"points,omitempty"`
	NPC        bool    `json:"npc"`
	Solo       bool    `json:"solo"`
	Awox       bool    `json:"awox"`
	ESI        string  `json:"esi,omitempty"`
	URL        string  `json:"url"`
}

// DecodeError reports a payload that is not a usable killmail.
type DecodeError struct {
	// Field names the missing mandatory field, if that was the cause.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("killmail: missing %s", e.Field)
	}
	return fmt.Sprintf("killmail: decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// presence mirrors the mandatory fields with pointers so absence is visible.
type presence struct {
	ID            *uint64 `json:"killmail_id"`
	SolarSystemID *uint64 `json:"solar_system_id"`
	Victim        *struct {
		CorporationID *uint64 `json:"corporation_id"`
		ShipTypeID    *uint64 `json:"ship_type_id"`
	} `json:"victim"`
}

// Decode parses a killstream payload. Malformed JSON or a missing killmail_id,
// solar_system_id, victim.corporation_id or victim.ship_type_id yields a
// *DecodeError. The returned Killmail keeps a copy of data in Raw.
func Decode(data []byte) (*Killmail, error) {
	var p presence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &DecodeError{Err: err}
	}
	switch {
	case p.ID == nil:
		return nil, &DecodeError{Field: "killmail_id"}
	case p.SolarSystemID == nil:
		return nil, &DecodeError{Field: "solar_system_id"}
	case p.Victim == nil:
		return nil, &DecodeError{Field: "victim"}
	case p.Victim.CorporationID == nil:
		return nil, &DecodeError{Field: "victim.corporation_id"}
	case p.Victim.ShipTypeID == nil:
		return nil, &DecodeError{Field: "victim.ship_type_id"}
	}

	var km Killmail
	if err := json.Unmarshal(data, &km); err != nil {
		return nil, &DecodeError{Err: err}
	}
	km.Raw = append([]byte(nil), data...)
	return &km, nil
}

// JSON returns Raw when present, otherwise the re-encoded killmail.
func (km *Killmail) JSON() ([]byte, error) {
	if len(km.Raw) > 0 {
		return km.Raw, nil
	}
	return json.Marshal(km)
}
