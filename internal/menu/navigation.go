package menu

import "fitness-gateway/internal/menu/domain/model"

// Capability names issued by the upstream backend.
const (
	PermissionCRMAccess  = "crm_access"
	PermissionCreateUser = "create_user"
	PermissionEditUser   = "edit_user"
	PermissionDeleteUser = "delete_user"

	RoleAdmin   = "admin"
	RoleTrainer = "trainer"
	RoleClient  = "client"
)

// DefaultNavigation is the studio application's menu tree. Grouping is
// presentational: groups render in order with dividers between them.
func DefaultNavigation() model.Items {
	return model.Grouped(
		[]model.Node{
			model.Item{
				ID:    "dashboard",
				Label: "Dashboard",
				Icon:  "i-lucide-layout-dashboard",
				To:    "/",
			},
			model.Item{
				ID:          "workouts",
				Label:       "Workouts",
				Description: "Plan and track training sessions",
				Icon:        "i-lucide-dumbbell",
				To:          "/workouts",
				Children: []model.Node{
					model.Item{ID: "workouts-exercises", Label: "Exercises", To: "/workouts/exercises"},
					model.Item{ID: "workouts-muscle-groups", Label: "Muscle Groups", To: "/workouts/muscle-groups"},
				},
			},
			model.Item{
				ID:    "schedule",
				Label: "Schedule",
				Icon:  "i-lucide-calendar",
				To:    "/schedule",
			},
		},
		[]model.Node{
			model.Divider{ID: "divider-crm"},
			model.Item{
				ID:          "crm",
				Label:       "CRM",
				Description: "Member and trainer administration",
				Icon:        "i-lucide-users",
				To:          "/crm",
				Permissions: []string{PermissionCRMAccess},
				Children: []model.Node{
					model.Item{
						ID:          "crm-members",
						Label:       "Members",
						To:          "/crm/members",
						Permissions: []string{PermissionCRMAccess},
					},
					model.Item{
						ID:          "crm-new-member",
						Label:       "New Member",
						To:          "/crm/members/new",
						Permissions: []string{PermissionCreateUser},
					},
					model.Item{
						ID:          "crm-trainers",
						Label:       "Trainers",
						To:          "/crm/trainers",
						Roles:       []string{RoleAdmin},
						VisibleWhen: `"edit_user" in permissions || "delete_user" in permissions`,
					},
				},
			},
			model.Item{
				ID:    "settings",
				Label: "Settings",
				Icon:  "i-lucide-settings",
				To:    "/settings",
				Roles: []string{RoleAdmin, RoleTrainer},
			},
		},
		[]model.Node{
			model.Divider{ID: "divider-external"},
			model.Item{
				ID:       "help",
				Label:    "Help Center",
				Icon:     "i-lucide-circle-help",
				Href:     "https://help.example.com",
				External: true,
			},
		},
	)
}
