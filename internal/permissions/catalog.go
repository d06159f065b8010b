package permissions

// CRM deal permissions.
const (
	PermDealsCreate = "crm.deals.create"
	PermDealsRead   = "crm.deals.read"
	PermDealsUpdate = "crm.deals.update"
	PermDealsDelete = "crm.deals.delete"
)

// Administrative permissions over the tenant's own hierarchy and grants.
const (
	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"
)

// Catalog lists every permission the platform knows about, used to seed
// the registry at startup.
func Catalog() map[string]string {
	return map[string]string{
		PermDealsCreate:     "Create CRM deals",
		PermDealsRead:       "Read CRM deals",
		PermDealsUpdate:     "Update CRM deals",
		PermDealsDelete:     "Delete CRM deals",
		PermRolesView:       "View tenant roles",
		PermRolesEdit:       "Create, move and delete tenant roles",
		PermPermissionsView: "View role permission assignments",
		PermPermissionsEdit: "Grant and revoke role permissions",
	}
}
