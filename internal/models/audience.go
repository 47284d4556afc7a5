package models

// AudienceMode is the persisted tag of an Audience.
type AudienceMode string

const (
	ModeDirect   AudienceMode = "direct"
	ModeRole     AudienceMode = "role"
	ModeAll      AudienceMode = "all"
	ModeSpecific AudienceMode = "specific"
)

// Audience selects who can see a notification. It is resolved exactly once, when
// the notification is created; the implementations below are the only variants.
type Audience interface {
	Mode() AudienceMode
	audience()
}

// DirectAudience addresses a single owning user. No recipient rows are materialized.
type DirectAudience struct {
	UserID string
}

// RoleAudience addresses every active user holding RoleID at creation time.
type RoleAudience struct {
	RoleID string
}

// AllAudience addresses every active user at creation time.
type AllAudience struct{}

// SpecificAudience addresses exactly the listed users.
type SpecificAudience struct {
	UserIDs []string
}

func (DirectAudience) Mode() AudienceMode   { return ModeDirect }
func (RoleAudience) Mode() AudienceMode     { return ModeRole }
func (AllAudience) Mode() AudienceMode      { return ModeAll }
func (SpecificAudience) Mode() AudienceMode { return ModeSpecific }

func (DirectAudience) audience()   {}
func (RoleAudience) audience()     {}
func (AllAudience) audience()      {}
func (SpecificAudience) audience() {}

// ToUser is shorthand for DirectAudience.
func ToUser(userID string) Audience { return DirectAudience{UserID: userID} }

// ToRole is shorthand for RoleAudience.
func ToRole(roleID string) Audience { return RoleAudience{RoleID: roleID} }

// ToAll is shorthand for AllAudience.
func ToAll() Audience { return AllAudience{} }

// ToUsers is shorthand for SpecificAudience.
func ToUsers(userIDs ...string) Audience { return SpecificAudience{UserIDs: userIDs} }
