package models

// RoleKey is the stable identifier of a CRM role. Role rows are looked up by key at
// start-up; the generated row IDs are what notifications store.
type RoleKey string

const (
	RoleSuperAdmin   RoleKey = "superadmin"
	RoleAdmin        RoleKey = "admin"
	RoleUser         RoleKey = "user"
	RoleCommercial   RoleKey = "comercial"
	RoleMarketing    RoleKey = "marketing"
	RoleConstruction RoleKey = "obras"
	RolePostSale     RoleKey = "postventa"
	RoleArchitecture RoleKey = "arquitectura"
	RoleFinance      RoleKey = "finanzas"
	RoleHR           RoleKey = "rrhh"
)

// Role is the reference table backing role-addressed notifications.
type Role struct {
	BaseModel

	Key         RoleKey `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"`
	Name        string  `gorm:"type:varchar(128);not null" json:"name"`
	Description string  `json:"description"`
}

// DefaultRoles lists the role reference rows seeded on start-up.
func DefaultRoles() []Role {
	return []Role{
		{Key: RoleSuperAdmin, Name: "Super administrador"},
		{Key: RoleAdmin, Name: "Administrador"},
		{Key: RoleUser, Name: "Usuario"},
		{Key: RoleCommercial, Name: "Comercial"},
		{Key: RoleMarketing, Name: "Marketing"},
		{Key: RoleConstruction, Name: "Obras"},
		{Key: RolePostSale, Name: "Postventa"},
		{Key: RoleArchitecture, Name: "Arquitectura"},
		{Key: RoleFinance, Name: "Finanzas"},
		{Key: RoleHR, Name: "Recursos humanos"},
	}
}
