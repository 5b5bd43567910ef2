package event

import "math"

// Permission is a required role name.
type Permission string

const (
	PermAll        Permission = "all"
	PermMaster     Permission = "master"
	PermAdmin      Permission = "admin"
	PermGroupOwner Permission = "group.owner"
	PermGuildOwner Permission = "guild.owner"
	PermGroupAdmin Permission = "group.admin"
	PermGuildAdmin Permission = "guild.admin"
	PermMember     Permission = "member"
)

// Permission levels, highest first.
const (
	LevelMaster = 100
	LevelAdmin  = 80
	LevelOwner  = 60
	LevelManage = 40
	LevelMember = 20
	LevelAll    = 0
)

var levels = map[Permission]int{
	PermMaster:     LevelMaster,
	PermAdmin:      LevelAdmin,
	PermGroupOwner: LevelOwner,
	PermGuildOwner: LevelOwner,
	PermGroupAdmin: LevelManage,
	PermGuildAdmin: LevelManage,
	PermMember:     LevelMember,
	PermAll:        LevelAll,
}

// Level returns the numeric level required by p. Unknown names require
// math.MaxInt, which no sender reaches.
func (p Permission) Level() int {
	if l, ok := levels[p]; ok {
		return l
	}
	return math.MaxInt
}

// Role is the sender's declared role inside a group or guild.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
	RoleUnknown Role = "unknown"
)

// Level returns the sender's effective permission level.
func (e *Event) Level() int {
	if e.isMaster {
		return LevelMaster
	}
	if e.isAdmin {
		return LevelAdmin
	}
	if e.IsGroup() || e.IsGuild() {
		switch e.sender.Role {
		case RoleOwner:
			return LevelOwner
		case RoleAdmin:
			return LevelManage
		}
	}
	return LevelMember
}

// HasPermission reports whether the sender holds required. In upward mode
// any level at or above required passes; otherwise the levels must match
// exactly. PermAll always passes; an empty or unknown name never does.
func (e *Event) HasPermission(required Permission, upward bool) bool {
	if required == PermAll {
		return true
	}
	level := e.Level()
	if upward {
		return level >= required.Level()
	}
	return level == required.Level()
}
