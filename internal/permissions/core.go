package permissions

// Module names used as the unit of permission granularity.
const (
	ModuleProducts      = "products"
	ModuleCategories    = "categories"
	ModuleOrders        = "orders"
	ModuleUsers         = "users"
	ModuleRoles         = "roles"
	ModuleNotifications = "notifications"
	ModuleSettings      = "settings"
)

// Capability actions.
const (
	ActionRead         = "read"
	ActionEdit         = "edit"
	ActionDelete       = "delete"
	ActionCreateAssets = "create_assets"
	ActionExport       = "export"
)

func init() {
	defs := []*Definition{
		{Module: ModuleProducts, Action: ActionRead, Description: "View catalog products"},
		{Module: ModuleProducts, Action: ActionCreateAssets, DependsOn: []string{"products.read"}, Description: "Create products and variants"},
		{Module: ModuleProducts, Action: ActionEdit, DependsOn: []string{"products.read"}, Description: "Edit products, variants, and stock"},
		{Module: ModuleProducts, Action: ActionDelete, DependsOn: []string{"products.read", "products.edit"}, Description: "Delete products"},
		{Module: ModuleProducts, Action: ActionExport, DependsOn: []string{"products.read"}, Description: "Export the product catalog"},

		{Module: ModuleCategories, Action: ActionRead, Description: "View categories"},
		{Module: ModuleCategories, Action: ActionCreateAssets, DependsOn: []string{"categories.read"}, Description: "Create categories"},
		{Module: ModuleCategories, Action: ActionEdit, DependsOn: []string{"categories.read"}, Description: "Edit categories"},
		{Module: ModuleCategories, Action: ActionDelete, DependsOn: []string{"categories.read", "categories.edit"}, Description: "Delete categories"},

		{Module: ModuleOrders, Action: ActionRead, Description: "View orders"},
		{Module: ModuleOrders, Action: ActionEdit, DependsOn: []string{"orders.read"}, Description: "Update order status"},
		{Module: ModuleOrders, Action: ActionExport, DependsOn: []string{"orders.read"}, Description: "Export order reports"},

		{Module: ModuleUsers, Action: ActionRead, Description: "View user accounts"},
		{Module: ModuleUsers, Action: ActionCreateAssets, DependsOn: []string{"users.read"}, Description: "Create user accounts"},
		{Module: ModuleUsers, Action: ActionEdit, DependsOn: []string{"users.read"}, Description: "Edit user accounts"},
		{Module: ModuleUsers, Action: ActionDelete, DependsOn: []string{"users.read", "users.edit"}, Description: "Deactivate user accounts"},

		{Module: ModuleRoles, Action: ActionRead, Description: "View roles and the permission catalog"},
		{Module: ModuleRoles, Action: ActionEdit, DependsOn: []string{"roles.read"}, Description: "Assign roles and adjust permissions"},

		{Module: ModuleNotifications, Action: ActionRead, Description: "View in-app notifications"},
		{Module: ModuleNotifications, Action: ActionEdit, DependsOn: []string{"notifications.read"}, Description: "Manage notifications"},

		{Module: ModuleSettings, Action: ActionRead, Description: "View store settings"},
		{Module: ModuleSettings, Action: ActionEdit, DependsOn: []string{"settings.read"}, Description: "Update store settings"},
	}

	for _, def := range defs {
		if err := Register(def); err != nil {
			panic(err)
		}
	}
}
