package rbac

type Role string
type Action string

const (
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionExport  Action = "export"
	ActionWrite   Action = "write"
	ActionUpload  Action = "upload"
	ActionHistory Action = "history"
)

// Can reports whether role may perform action. Visitors browse, admins
// also edit.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleVisitor:
		return action == ActionRead || action == ActionExport
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleVisitor, RoleAdmin:
		return Role(role)
	default:
		return RoleVisitor
	}
}
