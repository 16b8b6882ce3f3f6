package killmail

import "github.com/rzbill/zkhook/internal/filter"

// Filters returns every filter the killmail matches, deduplicated, in
// derivation order: All, System, the victim's filters, then each attacker's.
//
// Victim identity filters carry filter.Attacker unless victimRole is set, in
// which case they carry filter.Victim.
func (km *Killmail) Filters(victimRole bool) []filter.Filter {
	out := make([]filter.Filter, 0, 6+4*len(km.Attackers))
	out = append(out, filter.All(), filter.System(km.SolarSystemID))
	out = append(out, km.Victim.filters(victimRole)...)
	for i := range km.Attackers {
		out = append(out, km.Attackers[i].filters()...)
	}
	return filter.Dedup(out)
}

func (v Victim) filters(victimRole bool) []filter.Filter {
	role := filter.Attacker
	if victimRole {
		role = filter.Victim
	}
	out := make([]filter.Filter, 0, 4)
	out = append(out, filter.Ship(v.ShipTypeID, role))
	if v.CharacterID != nil {
		out = append(out, filter.Character(*v.CharacterID, role))
	}
	if v.AllianceID != nil {
		out = append(out, filter.Alliance(*v.AllianceID, role))
	}
	return append(out, filter.Corporation(v.CorporationID, role))
}

func (a Attacker) filters() []filter.Filter {
	out := make([]filter.Filter, 0, 4)
	if a.ShipTypeID != nil {
		out = append(out, filter.Ship(*a.ShipTypeID, filter.Attacker))
	}
	if a.CharacterID != nil {
		out = append(out, filter.Character(*a.CharacterID, filter.Attacker))
	}
	if a.AllianceID != nil {
		out = append(out, filter.Alliance(*a.AllianceID, filter.Attacker))
	}
	if a.CorporationID != nil {
		out = append(out, filter.Corporation(*a.CorporationID, filter.Attacker))
	}
	return out
}

// Deriver fixes the victim tagging choice for repeated derivations.
type Deriver struct {
	VictimRole bool
}

// Filters derives km's filters with the configured victim tagging.
func (d Deriver) Filters(km *Killmail) []filter.Filter { return km.Filters(d.VictimRole) }
