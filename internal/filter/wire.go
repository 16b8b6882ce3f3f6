package filter

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
)

// wireFilter is the self-describing form used by the registration API:
//
//	{"type": "system", "id": 30000142}
//	{"type": "character", "id": 7, "role": "victim"}
//	{"type": "all"}
//
// id is required for every type but all; role defaults to attacker.
type wireFilter struct {
	Type string  `json:"type" cbor:"type"`
	ID   *uint64 `json:"id,omitempty" cbor:"id,omitempty"`
	Role string  `json:"role,omitempty" cbor:"role,omitempty"`
}

func (f Filter) toWire() wireFilter {
	f = f.Canonical()
	w := wireFilter{Type: f.Kind.String()}
	if f.Kind.HasID() {
		id := f.ID
		w.ID = &id
	}
	if f.Kind.HasRole() {
		w.Role = f.Role.String()
	}
	return w
}

func (w wireFilter) toFilter() (Filter, error) {
	k, err := ParseKind(w.Type)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Kind: k}
	if k.HasID() {
		if w.ID == nil {
			return Filter{}, fmt.Errorf("filter: %q requires an id", k)
		}
		f.ID = *w.ID
	}
	if k.HasRole() && w.Role != "" {
		if f.Role, err = ParseRole(w.Role); err != nil {
			return Filter{}, err
		}
	}
	return f.Canonical(), nil
}

func (f Filter) MarshalJSON() ([]byte, error) { return json.Marshal(f.toWire()) }

func (f *Filter) UnmarshalJSON(b []byte) error {
	var w wireFilter
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v, err := w.toFilter()
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f Filter) MarshalCBOR() ([]byte, error) { return cbor.Marshal(f.toWire()) }

func (f *Filter) UnmarshalCBOR(b []byte) error {
	var w wireFilter
	if err := cbor.Unmarshal(b, &w); err != nil {
		return err
	}
	v, err := w.toFilter()
	if err != nil {
		return err
	}
	*f = v
	return nil
}
