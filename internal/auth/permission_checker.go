package auth

import "strings"

// PermissionSet is the effective permission view of one subject.
type PermissionSet struct {
	role  string
	names map[string]struct{}
}

func NewPermissionSet(role string, names []string) PermissionSet {
	set := PermissionSet{role: role, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		set.names[n] = struct{}{}
	}
	return set
}

// IsAdmin reports either admin escalation: the reserved role name or the
// wildcard permission.
func (s PermissionSet) IsAdmin() bool {
	if s.role == AdminRoleName {
		return true
	}
	_, ok := s.names[WildcardPermission]
	return ok
}

func (s PermissionSet) Has(name string) bool {
	if s.IsAdmin() {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// Missing returns the required names the set does not hold, nil for admins.
func (s PermissionSet) Missing(required []string) []string {
	if s.IsAdmin() {
		return nil
	}
	var missing []string
	for _, r := range required {
		if _, ok := s.names[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

func (s PermissionSet) HasAll(required []string) bool {
	return len(s.Missing(required)) == 0
}

func (s PermissionSet) HasAny(candidates []string) bool {
	if s.IsAdmin() {
		return true
	}
	for _, c := range candidates {
		if _, ok := s.names[c]; ok {
			return true
		}
	}
	return false
}

// CanManageResource requires create, read, update and delete on resource.
func (s PermissionSet) CanManageResource(resource string) bool {
	return s.HasAll(CanManage(resource))
}

// FilterByPermissions keeps the candidates the set holds.
func (s PermissionSet) FilterByPermissions(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	return out
}

func PermissionName(resource, action string) string {
	return resource + ":" + action
}

// SplitPermissionName splits "resource:action"; ok is false for other shapes.
func SplitPermissionName(name string) (resource, action string, ok bool) {
	resource, action, ok = strings.Cut(name, ":")
	if !ok || resource == "" || action == "" {
		return "", "", false
	}
	return resource, action, true
}

// ResourceAction builds the permission names for actions on one resource.
func ResourceAction(resource string, actions ...string) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = PermissionName(resource, a)
	}
	return out
}

func CanCreate(resource string) []string { return ResourceAction(resource, "create") }
func CanRead(resource string) []string   { return ResourceAction(resource, "read") }
func CanUpdate(resource string) []string { return ResourceAction(resource, "update") }
func CanDelete(resource string) []string { return ResourceAction(resource, "delete") }

func CanManage(resource string) []string {
	return ResourceAction(resource, "create", "read", "update", "delete")
}

func AdminOnly() []string { return []string{WildcardPermission} }

// OwnerOrAdmin lists the names that let a caller act on a record of resource:
// the owner scope or the wildcard. Any one of them is enough.
func OwnerOrAdmin(resource string) []string {
	return []string{PermissionName(resource, "own"), WildcardPermission}
}
