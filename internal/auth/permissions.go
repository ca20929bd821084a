package auth

import "strings"

// Permission keys. The role mapping below is process-wide static
// configuration: built once, read-only afterwards.
const (
	PermCatalogRead       = "catalog.read"
	PermArtistsManage     = "catalog.artists.manage"
	PermSongsManage       = "catalog.songs.manage"
	PermCategoriesManage  = "catalog.categories.manage"
	PermBannersManage     = "catalog.banners.manage"
	PermPlaylistsManage   = "catalog.playlists.manage"
	PermAccountsManage    = "accounts.manage"
)

// AllPermissions lists every permission defined in the system.
var AllPermissions = []string{
	PermCatalogRead,
	PermArtistsManage,
	PermSongsManage,
	PermCategoriesManage,
	PermBannersManage,
	PermPlaylistsManage,
	PermAccountsManage,
}

var rolePermissions = buildRolePermissions()

func buildRolePermissions() map[string]map[string]struct{} {
	grants := map[string][]string{
		// admin holds every permission in the system.
		RoleAdmin: AllPermissions,
		RoleEditor: {
			PermCatalogRead,
			PermArtistsManage,
			PermSongsManage,
			PermCategoriesManage,
			PermBannersManage,
			PermPlaylistsManage,
		},
		RoleViewer: {
			PermCatalogRead,
		},
	}
	out := make(map[string]map[string]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// RoleHas reports whether the role holds the permission. Unknown roles
// resolve to the empty set: fail closed, never fail open.
func RoleHas(role, permission string) bool {
	set, ok := rolePermissions[normalizeRole(role)]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// RoleHasAny reports whether the role holds at least one of the
// permissions. An empty list resolves to false.
func RoleHasAny(role string, permissions ...string) bool {
	for _, p := range permissions {
		if RoleHas(role, p) {
			return true
		}
	}
	return false
}

// RoleHasAll reports whether the role holds every listed permission.
// An empty list resolves to true.
func RoleHasAll(role string, permissions ...string) bool {
	for _, p := range permissions {
		if !RoleHas(role, p) {
			return false
		}
	}
	return true
}

// RolePermissions returns the permissions granted to the role, or nil for
// an unknown role. The returned slice is a copy.
func RolePermissions(role string) []string {
	set, ok := rolePermissions[normalizeRole(role)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for _, p := range AllPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func normalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}
