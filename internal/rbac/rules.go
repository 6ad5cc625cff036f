package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"course:view",
		"quiz:view",
		"quiz:submit",
		"media:view",
	},
	"admin": {
		"*", // everything
	},
}
