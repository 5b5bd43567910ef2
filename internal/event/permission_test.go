package event

import (
	"math"
	"testing"

	"github.com/PuniCore/Puni/internal/adapter"
	"github.com/stretchr/testify/assert"
)

func eventWith(scene adapter.Scene, role Role, master, admin bool) *Event {
	return New(Options{
		Contact:  adapter.Contact{Scene: scene, Peer: "p"},
		Sender:   Sender{UserID: "u", Role: role},
		IsMaster: master,
		IsAdmin:  admin,
	})
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name string
		e    *Event
		want int
	}{
		{"master", eventWith(adapter.SceneFriend, "", true, true), LevelMaster},
		{"bot admin", eventWith(adapter.SceneGroup, RoleOwner, false, true), LevelAdmin},
		{"group owner", eventWith(adapter.SceneGroup, RoleOwner, false, false), LevelOwner},
		{"guild admin", eventWith(adapter.SceneGuild, RoleAdmin, false, false), LevelManage},
		{"group member default", eventWith(adapter.SceneGroup, "", false, false), LevelMember},
		{"owner role outside group", eventWith(adapter.SceneFriend, RoleOwner, false, false), LevelMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.Level())
		})
	}
}

func TestHasPermission(t *testing.T) {
	member := eventWith(adapter.SceneGroup, RoleMember, false, false)
	owner := eventWith(adapter.SceneGroup, RoleOwner, false, false)
	master := eventWith(adapter.SceneFriend, "", true, false)

	assert.True(t, member.HasPermission(PermAll, true))
	assert.True(t, member.HasPermission(PermAll, false))

	assert.True(t, member.HasPermission(PermMember, true))
	assert.True(t, member.HasPermission(PermMember, false))
	assert.True(t, owner.HasPermission(PermMember, true))
	assert.False(t, owner.HasPermission(PermMember, false))

	assert.True(t, owner.HasPermission(PermGroupAdmin, true))
	assert.False(t, member.HasPermission(PermGroupAdmin, true))
	assert.True(t, master.HasPermission(PermAdmin, true))
	assert.False(t, master.HasPermission(PermAdmin, false))

	assert.False(t, master.HasPermission("superuser", true))
	assert.False(t, master.HasPermission("superuser", false))
	assert.False(t, master.HasPermission("", true))
	assert.False(t, member.HasPermission("", false))
}

func TestPermissionLevel_Unknown(t *testing.T) {
	assert.Equal(t, math.MaxInt, Permission("nope").Level())
	assert.Equal(t, LevelOwner, PermGuildOwner.Level())
}
