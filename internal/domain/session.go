package domain

type Role int

const (
	RoleNone Role = iota
	RoleMod
	RoleAdmin
)

// Satisfies reports whether r grants the capabilities of required. Admin includes mod.
func (r Role) Satisfies(required Role) bool {
	return r >= required
}

func (r Role) String() string {
	switch r {
	case RoleMod:
		return "mod"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
