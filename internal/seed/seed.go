// Package seed installs the default roles, permissions and the first admin
// account. Every step is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhatdang2003/tms-backend/internal/auth"
	rbacDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/rbac"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	RoleAdmin      = auth.AdminRoleName
	RoleSupervisor = auth.SupervisorRoleName
	RoleTechnician = auth.TechnicianRoleName
)

var resources = []string{"users", "roles", "permissions", "organizations", "tickets", "documents"}

var crud = []string{"create", "read", "update", "delete"}

type Options struct {
	AdminEmail    string
	AdminPassword string
	BCryptCost    int
	// Clear removes existing grants, permissions and roles first.
	Clear bool
}

type Result struct {
	Roles       int
	Permissions int
	AdminID     int64
	AdminNew    bool
}

// Permissions lists every seeded permission name.
func Permissions() []string {
	names := []string{auth.WildcardPermission}
	for _, r := range resources {
		names = append(names, auth.ResourceAction(r, crud...)...)
	}
	return names
}

// Grants maps each seeded role to its permission names.
func Grants() map[string][]string {
	supervisor := append(auth.ResourceAction("users", "create", "read", "update"),
		auth.CanRead("organizations")...)
	supervisor = append(supervisor, auth.ResourceAction("tickets", crud...)...)
	supervisor = append(supervisor, auth.ResourceAction("documents", crud...)...)

	technician := append(auth.ResourceAction("tickets", "read", "update"),
		auth.ResourceAction("documents", "create", "read")...)

	return map[string][]string{
		RoleAdmin:      Permissions(),
		RoleSupervisor: supervisor,
		RoleTechnician: technician,
	}
}

var roleDescriptions = map[string]string{
	RoleAdmin:      "Full administrator",
	RoleSupervisor: "Manages users and tickets of one organization",
	RoleTechnician: "Works on assigned tickets",
}

type Seeder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSeeder(db *gorm.DB, lg *slog.Logger) *Seeder {
	if lg == nil {
		lg = slog.Default()
	}
	return &Seeder{db: db, logger: lg}
}

func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		return nil, errors.New("admin email and password are required")
	}

	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Clear {
			if err := clearSeeded(tx); err != nil {
				return err
			}
		}

		perms := make(map[string]rbacDatamodel.Permission)
		for _, name := range Permissions() {
			p, err := ensurePermission(tx, name)
			if err != nil {
				return err
			}
			perms[name] = *p
		}
		res.Permissions = len(perms)

		roleIDs := make(map[string]int64)
		for name, grants := range Grants() {
			r, err := ensureRole(tx, name)
			if err != nil {
				return err
			}
			links := make([]rbacDatamodel.RolePermission, 0, len(grants))
			for _, g := range grants {
				links = append(links, rbacDatamodel.RolePermission{RoleID: r.ID, PermissionID: perms[g].ID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("grant permissions to %s: %w", name, err)
			}
			roleIDs[name] = r.ID
		}
		res.Roles = len(roleIDs)

		id, created, err := s.ensureAdmin(tx, opts, roleIDs[RoleAdmin])
		if err != nil {
			return err
		}
		res.AdminID = id
		res.AdminNew = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("seed complete",
		"roles", res.Roles,
		"permissions", res.Permissions,
		"admin_id", res.AdminID,
		"admin_created", res.AdminNew)
	return &res, nil
}

func ensurePermission(tx *gorm.DB, name string) (*rbacDatamodel.Permission, error) {
	resource, action, _ := auth.SplitPermissionName(name)
	p := rbacDatamodel.Permission{
		Name:        name,
		Description: fmt.Sprintf("Can %s %s", action, resource),
		Resource:    resource,
		Action:      action,
	}
	if name == auth.WildcardPermission {
		p.Description = "Full administrator access"
	}
	if err := tx.Where(rbacDatamodel.Permission{Name: name}).FirstOrCreate(&p).Error; err != nil {
		return nil, fmt.Errorf("seed permission %s: %w", name, err)
	}
	return &p, nil
}

func ensureRole(tx *gorm.DB, name string) (*rbacDatamodel.Role, error) {
	r := rbacDatamodel.Role{Name: name, Description: roleDescriptions[name]}
	if err := tx.Omit(clause.Associations).Where(rbacDatamodel.Role{Name: name}).FirstOrCreate(&r).Error; err != nil {
		return nil, fmt.Errorf("seed role %s: %w", name, err)
	}
	return &r, nil
}

// ensureAdmin creates the admin account, or moves an existing account with
// that e-mail onto the ADMIN role. An existing password is left alone.
func (s *Seeder) ensureAdmin(tx *gorm.DB, opts Options, roleID int64) (int64, bool, error) {
	var existing userDatamodel.User
	err := tx.Unscoped().Where("email = ?", opts.AdminEmail).First(&existing).Error
	switch {
	case err == nil:
		if existing.RoleID == nil || *existing.RoleID != roleID {
			if err := tx.Unscoped().Model(&existing).Update("role_id", roleID).Error; err != nil {
				return 0, false, fmt.Errorf("promote admin: %w", err)
			}
		}
		return existing.ID, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(opts.AdminPassword, opts.BCryptCost)
	if err != nil {
		return 0, false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := userDatamodel.User{
		Email:        opts.AdminEmail,
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		Status:       userDatamodel.StatusActive,
		RoleID:       &roleID,
	}
	if err := tx.Omit(clause.Associations).Create(&admin).Error; err != nil {
		return 0, false, fmt.Errorf("create admin: %w", err)
	}
	return admin.ID, true, nil
}

func clearSeeded(tx *gorm.DB) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"role_permissions", func() error {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rbacDatamodel.RolePermission{}).Error
		}},
		{"users.role_id", func() error {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().
				Model(&userDatamodel.User{}).Update("role_id", nil).Error
		}},
		{"permissions", func() error {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rbacDatamodel.Permission{}).Error
		}},
		{"roles", func() error {
			return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rbacDatamodel.Role{}).Error
		}},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			return fmt.Errorf("clear %s: %w", st.name, err)
		}
	}
	return nil
}
