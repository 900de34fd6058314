// Package permission computes the per-target overwrites that decide who can
// see a room channel. It has no side effects; callers apply the plan.
package permission

import "sort"

// TargetKind says whether an overwrite applies to a role or a single account.
type TargetKind int

const (
	TargetRole TargetKind = iota
	TargetMember
)

func (k TargetKind) String() string {
	if k == TargetMember {
		return "member"
	}
	return "role"
}

// Target is an overwrite subject.
type Target struct {
	ID   string
	Kind TargetKind
}

// Role returns a role target.
func Role(id string) Target { return Target{ID: id, Kind: TargetRole} }

// Member returns an account target.
func Member(id string) Target { return Target{ID: id, Kind: TargetMember} }

// Access is the visibility an overwrite grants.
type Access int

const (
	// Inherit removes the overwrite so role defaults apply.
	Inherit Access = iota
	// Hidden denies reading and sending.
	Hidden
	// Visible allows reading and sending.
	Visible
	// Full allows reading, sending, and administering the channel.
	Full
)

func (a Access) String() string {
	switch a {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	case Full:
		return "full"
	default:
		return "inherit"
	}
}

// CanView reports whether the access lets the target read the channel.
func (a Access) CanView() bool {
	return a == Visible || a == Full
}

// Overwrite pairs a target with its access.
type Overwrite struct {
	Target Target
	Access Access
}

// Input is everything the plan depends on.
type Input struct {
	Members []string
	Locked  bool

	BotID          string
	EveryoneRoleID string
	ModeratorRoles []string

	// PrivateByDefault denies the everyone role explicitly. When false the
	// everyone role is left unset on unlocked rooms and privacy relies on
	// the guild's default permissions.
	PrivateByDefault bool

	// ModeratorsAlwaysVisible also opens unlocked rooms to moderators; used
	// for moderator-contact rooms.
	ModeratorsAlwaysVisible bool
}

// Plan is the computed overwrite set, in deterministic order.
type Plan struct {
	Overwrites []Overwrite
	index      map[Target]int
}

// Build computes the plan for a room.
func Build(in Input) Plan {
	p := Plan{index: make(map[Target]int)}

	everyone := Hidden
	if !in.Locked && !in.PrivateByDefault {
		everyone = Inherit
	}
	if in.EveryoneRoleID != "" {
		p.set(Role(in.EveryoneRoleID), everyone)
	}

	if in.Locked || in.ModeratorsAlwaysVisible {
		for _, id := range sorted(in.ModeratorRoles) {
			if id == in.EveryoneRoleID {
				continue
			}
			p.set(Role(id), Visible)
		}
	}

	// Locked members fall back to the everyone role, which is Hidden. A
	// member who also holds a moderator role keeps access through it.
	member := Visible
	if in.Locked {
		member = Inherit
	}
	for _, id := range sorted(in.Members) {
		if id == in.BotID {
			continue
		}
		p.set(Member(id), member)
	}

	if in.BotID != "" {
		p.set(Member(in.BotID), Full)
	}

	return p
}

func (p *Plan) set(t Target, a Access) {
	if i, ok := p.index[t]; ok {
		p.Overwrites[i].Access = a
		return
	}
	p.index[t] = len(p.Overwrites)
	p.Overwrites = append(p.Overwrites, Overwrite{Target: t, Access: a})
}

// Access returns the planned access for t; targets not in the plan inherit.
func (p Plan) Access(t Target) Access {
	if i, ok := p.index[t]; ok {
		return p.Overwrites[i].Access
	}
	return Inherit
}

// Explicit returns overwrites that must exist on the channel (everything
// except Inherit), for channel creation.
func (p Plan) Explicit() []Overwrite {
	out := make([]Overwrite, 0, len(p.Overwrites))
	for _, ow := range p.Overwrites {
		if ow.Access != Inherit {
			out = append(out, ow)
		}
	}
	return out
}

// VisibleMembers returns member ids with an overwrite that grants viewing,
// excluding botID.
func (p Plan) VisibleMembers(botID string) []string {
	return p.visible(TargetMember, botID)
}

// VisibleRoles returns role ids with an overwrite that grants viewing.
func (p Plan) VisibleRoles() []string {
	return p.visible(TargetRole, "")
}

func (p Plan) visible(kind TargetKind, skip string) []string {
	var ids []string
	for _, ow := range p.Overwrites {
		if ow.Target.Kind == kind && ow.Target.ID != skip && ow.Access.CanView() {
			ids = append(ids, ow.Target.ID)
		}
	}
	return ids
}

// CountMembers counts member overwrites in a live overwrite list, excluding
// botID. This is how the sweep detects rooms nobody can see any more.
func CountMembers(overwrites []Overwrite, botID string) int {
	n := 0
	for _, ow := range overwrites {
		if ow.Target.Kind == TargetMember && ow.Target.ID != botID && ow.Access != Inherit {
			n++
		}
	}
	return n
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
