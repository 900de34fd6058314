package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/aurzen/roombot/internal/permission"
)

const (
	bitsRead   = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
	bitsWrite  = discordgo.PermissionSendMessages
	bitsManage = discordgo.PermissionManageChannels | discordgo.PermissionManageRoles

	// moderatorBits are the guild capabilities that make a role a moderator role.
	moderatorBits = discordgo.PermissionBanMembers | discordgo.PermissionManageServer
)

// accessBits returns the allow and deny masks for an access level.
// Inherit has no masks; the overwrite is deleted instead.
func accessBits(a permission.Access) (allow, deny int64) {
	switch a {
	case permission.Hidden:
		return 0, discordgo.PermissionViewChannel | bitsWrite
	case permission.Visible:
		return bitsRead | bitsWrite, 0
	case permission.Full:
		return bitsRead | bitsWrite | bitsManage, 0
	default:
		return 0, 0
	}
}

// overwriteAccess classifies a live overwrite. An overwrite that neither
// grants nor denies viewing still counts as present, so it reads as Visible.
func overwriteAccess(ow *discordgo.PermissionOverwrite) permission.Access {
	switch {
	case ow.Deny&discordgo.PermissionViewChannel != 0:
		return permission.Hidden
	case ow.Allow&discordgo.PermissionManageChannels != 0:
		return permission.Full
	default:
		return permission.Visible
	}
}

func toOverwrite(ow *discordgo.PermissionOverwrite) permission.Overwrite {
	target := permission.Role(ow.ID)
	if ow.Type == discordgo.PermissionOverwriteTypeMember {
		target = permission.Member(ow.ID)
	}
	return permission.Overwrite{Target: target, Access: overwriteAccess(ow)}
}

func fromOverwrite(ow permission.Overwrite) *discordgo.PermissionOverwrite {
	allow, deny := accessBits(ow.Access)
	return &discordgo.PermissionOverwrite{
		ID:    ow.Target.ID,
		Type:  overwriteType(ow.Target),
		Allow: allow,
		Deny:  deny,
	}
}

func overwriteType(t permission.Target) discordgo.PermissionOverwriteType {
	if t.Kind == permission.TargetMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func isModeratorRole(r *discordgo.Role) bool {
	return r.Permissions&moderatorBits != 0
}
