package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Role qualifies an entity's involvement in a killmail.
type Role uint8

const (
	Attacker Role = iota
	Victim
)

func (r Role) String() string {
	switch r {
	case Attacker:
		return "attacker"
	case Victim:
		return "victim"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// ParseRole accepts "attacker" or "victim".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "attacker":
		return Attacker, nil
	case "victim":
		return Victim, nil
	default:
		return 0, fmt.Errorf("filter: unknown role %q", s)
	}
}

func (r Role) valid() bool { return r == Attacker || r == Victim }

// Kind is the discriminant of a Filter. Values are persisted; never renumber.
type Kind uint8

const (
	KindAll Kind = iota
	KindCharacter
	KindCorporation
	KindAlliance
	KindSystem
	KindShip
)

var kindNames = [...]string{
	KindAll:         "all",
	KindCharacter:   "character",
	KindCorporation: "corporation",
	KindAlliance:    "alliance",
	KindSystem:      "system",
	KindShip:        "ship",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("filter: unknown kind %q", s)
}

func (k Kind) valid() bool { return k <= KindShip }

// HasID reports whether the variant carries an entity id.
func (k Kind) HasID() bool { return k != KindAll }

// HasRole reports whether the variant carries an involvement role.
func (k Kind) HasRole() bool {
	switch k {
	case KindCharacter, KindCorporation, KindAlliance, KindShip:
		return true
	}
	return false
}

// Filter is one dimension a subscriber can watch: every killmail, a solar
// system, or an entity's involvement by role. Filter is comparable; two
// filters are the same key iff they are ==, after Canonical.
type Filter struct {
	Kind Kind
	ID   uint64
	Role Role
}

// All matches every killmail.
func All() Filter { return Filter{Kind: KindAll} }

// System matches killmails in one solar system.
func System(id uint64) Filter { return Filter{Kind: KindSystem, ID: id} }

// Character matches killmails where the character took part in role r.
func Character(id uint64, r Role) Filter { return Filter{Kind: KindCharacter, ID: id, Role: r} }

// Corporation is Character for a corporation id.
func Corporation(id uint64, r Role) Filter { return Filter{Kind: KindCorporation, ID: id, Role: r} }

// Alliance is Character for an alliance id.
func Alliance(id uint64, r Role) Filter { return Filter{Kind: KindAlliance, ID: id, Role: r} }

// Ship is Character for a ship type id.
func Ship(id uint64, r Role) Filter { return Filter{Kind: KindShip, ID: id, Role: r} }

// Canonical zeroes the payload fields the variant does not carry.
func (f Filter) Canonical() Filter {
	if !f.Kind.HasID() {
		f.ID = 0
	}
	if !f.Kind.HasRole() {
		f.Role = 0
	}
	return f
}

// Validate rejects unknown kinds and roles.
func (f Filter) Validate() error {
	if !f.Kind.valid() {
		return fmt.Errorf("filter: unknown kind %d", f.Kind)
	}
	if f.Kind.HasRole() && !f.Role.valid() {
		return fmt.Errorf("filter: unknown role %d", f.Role)
	}
	return nil
}

// String renders the filter as kind[:id[:role]], e.g. "system:30000142" or
// "character:7:attacker".
func (f Filter) String() string {
	switch {
	case !f.Kind.HasID():
		return f.Kind.String()
	case !f.Kind.HasRole():
		return f.Kind.String() + ":" + strconv.FormatUint(f.ID, 10)
	default:
		return f.Kind.String() + ":" + strconv.FormatUint(f.ID, 10) + ":" + f.Role.String()
	}
}

// Parse is the inverse of String. A role-carrying kind without a role
// defaults to Attacker.
func Parse(s string) (Filter, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	k, err := ParseKind(parts[0])
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Kind: k}
	switch {
	case !k.HasID():
		if len(parts) != 1 {
			return Filter{}, fmt.Errorf("filter: %q takes no arguments", k)
		}
		return f, nil
	case len(parts) < 2:
		return Filter{}, fmt.Errorf("filter: %q requires an id", k)
	}
	if f.ID, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
		return Filter{}, fmt.Errorf("filter: bad id %q: %w", parts[1], err)
	}
	switch {
	case !k.HasRole():
		if len(parts) != 2 {
			return Filter{}, fmt.Errorf("filter: %q takes no role", k)
		}
	case len(parts) == 3:
		if f.Role, err = ParseRole(parts[2]); err != nil {
			return Filter{}, err
		}
	case len(parts) > 3:
		return Filter{}, fmt.Errorf("filter: too many segments in %q", s)
	}
	return f, nil
}

// Dedup returns filters with duplicates removed, keeping first occurrences in order.
func Dedup(in []Filter) []Filter {
	seen := make(map[Filter]struct{}, len(in))
	out := in[:0:0]
	for _, f := range in {
		f = f.Canonical()
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
