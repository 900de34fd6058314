package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseInput() Input {
	return Input{
		Members:          []string{"200", "100"},
		BotID:            "bot",
		EveryoneRoleID:   "g1",
		ModeratorRoles:   []string{"mods"},
		PrivateByDefault: true,
	}
}

func TestBuild_Unlocked(t *testing.T) {
	p := Build(baseInput())

	assert.Equal(t, []Overwrite{
		{Role("g1"), Hidden},
		{Member("100"), Visible},
		{Member("200"), Visible},
		{Member("bot"), Full},
	}, p.Overwrites)
	assert.Equal(t, Inherit, p.Access(Role("mods")))
	assert.Equal(t, []string{"100", "200"}, p.VisibleMembers("bot"))
	assert.Empty(t, p.VisibleRoles())
}

func TestBuild_Locked(t *testing.T) {
	in := baseInput()
	in.Locked = true
	p := Build(in)

	assert.Equal(t, Hidden, p.Access(Role("g1")))
	assert.Equal(t, Visible, p.Access(Role("mods")))
	assert.Equal(t, Inherit, p.Access(Member("100")))
	assert.Equal(t, Inherit, p.Access(Member("200")))
	assert.Equal(t, Full, p.Access(Member("bot")))

	assert.Empty(t, p.VisibleMembers("bot"))
	assert.Equal(t, []string{"mods"}, p.VisibleRoles())
	assert.Equal(t, []Overwrite{
		{Role("g1"), Hidden},
		{Role("mods"), Visible},
		{Member("bot"), Full},
	}, p.Explicit())
}

func TestBuild_Options(t *testing.T) {
	t.Run("not private", func(t *testing.T) {
		in := baseInput()
		in.PrivateByDefault = false
		assert.Equal(t, Inherit, Build(in).Access(Role("g1")))

		in.Locked = true
		assert.Equal(t, Hidden, Build(in).Access(Role("g1")), "locking always hides from everyone")
	})

	t.Run("moderators always visible", func(t *testing.T) {
		in := baseInput()
		in.Members = []string{"100"}
		in.ModeratorsAlwaysVisible = true
		p := Build(in)
		assert.Equal(t, Visible, p.Access(Role("mods")))
		assert.Equal(t, Visible, p.Access(Member("100")))
	})

	t.Run("bot listed as member", func(t *testing.T) {
		in := baseInput()
		in.Members = append(in.Members, "bot")
		assert.Equal(t, Full, Build(in).Access(Member("bot")))
	})

	t.Run("everyone role listed as moderator", func(t *testing.T) {
		in := baseInput()
		in.Locked = true
		in.ModeratorRoles = []string{"g1", "mods"}
		assert.Equal(t, Hidden, Build(in).Access(Role("g1")))
	})
}

func TestBuild_Deterministic(t *testing.T) {
	a := baseInput()
	b := baseInput()
	b.Members = []string{"100", "200"}
	assert.Equal(t, Build(a).Overwrites, Build(b).Overwrites)
}

func TestCountMembers(t *testing.T) {
	live := []Overwrite{
		{Role("g1"), Hidden},
		{Member("bot"), Full},
		{Member("100"), Visible},
		{Member("200"), Hidden},
		{Member("300"), Inherit},
	}
	assert.Equal(t, 2, CountMembers(live, "bot"))
	assert.Equal(t, 0, CountMembers(live[:2], "bot"))
}

func TestAccess_CanView(t *testing.T) {
	assert.False(t, Inherit.CanView())
	assert.False(t, Hidden.CanView())
	assert.True(t, Visible.CanView())
	assert.True(t, Full.CanView())
	assert.Equal(t, "member", TargetMember.String())
	assert.Equal(t, "full", Full.String())
}
