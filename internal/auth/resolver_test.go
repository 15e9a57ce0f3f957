package auth

import (
	"context"
	"errors"

	"github.com/nhatdang2003/tms-backend/internal"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("PermissionResolver", func() {
	var (
		ctx      context.Context
		accounts *mockAccounts
		resolver *PermissionResolver
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		accounts = newMockAccounts()
		resolver = NewPermissionResolver(accounts, discardLogger())

		admin, technician, wildcard := testRoles()
		accounts.add(1, "admin@example.com", userDatamodel.StatusActive, admin)
		accounts.add(2, "tech@example.com", userDatamodel.StatusActive, technician)
		accounts.add(3, "auditor@example.com", userDatamodel.StatusActive, wildcard)
		accounts.add(4, "norole@example.com", userDatamodel.StatusActive, nil)
	})

	principal := func(id int64) *Principal {
		return &Principal{ID: id}
	}

	ginkgo.Describe("Check", func() {
		ginkgo.It("should allow anyone when nothing is required", func() {
			gomega.Expect(resolver.Check(ctx, nil, nil)).To(gomega.Succeed())
			gomega.Expect(resolver.Check(ctx, principal(4), []string{})).To(gomega.Succeed())
		})

		ginkgo.It("should refuse a missing principal", func() {
			err := resolver.Check(ctx, nil, []string{"tickets:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAuthenticated))
		})

		ginkgo.It("should refuse users without a role", func() {
			err := resolver.Check(ctx, principal(4), []string{"tickets:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNoRoleAssigned))
		})

		ginkgo.It("should let the ADMIN role through", func() {
			gomega.Expect(resolver.Check(ctx, principal(1), []string{"roles:delete", "users:create"})).To(gomega.Succeed())
		})

		ginkgo.It("should let the wildcard permission through", func() {
			gomega.Expect(resolver.Check(ctx, principal(3), []string{"roles:delete"})).To(gomega.Succeed())
		})

		ginkgo.It("should require every listed permission", func() {
			gomega.Expect(resolver.Check(ctx, principal(2), []string{"tickets:read", "tickets:update"})).To(gomega.Succeed())

			err := resolver.Check(ctx, principal(2), []string{"tickets:read", "tickets:delete"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInsufficientPermissions))
		})

		ginkgo.It("should see role changes on the next call", func() {
			gomega.Expect(resolver.Check(ctx, principal(2), []string{"roles:delete"})).ToNot(gomega.Succeed())

			admin, _, _ := testRoles()
			accounts.setRole(2, admin)
			gomega.Expect(resolver.Check(ctx, principal(2), []string{"roles:delete"})).To(gomega.Succeed())
		})

		ginkgo.It("should treat deleted users as unauthenticated", func() {
			err := resolver.Check(ctx, principal(99), []string{"tickets:read"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAuthenticated))
		})

		ginkgo.It("should surface store failures as internal errors", func() {
			accounts.err = errors.New("connection reset")
			err := resolver.Check(ctx, principal(2), []string{"tickets:read"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeInternal))
		})
	})

	ginkgo.Describe("CheckRoles", func() {
		ginkgo.It("should admit listed roles and ADMIN", func() {
			gomega.Expect(resolver.CheckRoles(&Principal{ID: 2, Role: TechnicianRoleName}, []string{TechnicianRoleName})).To(gomega.Succeed())
			gomega.Expect(resolver.CheckRoles(&Principal{ID: 1, Role: AdminRoleName}, []string{SupervisorRoleName})).To(gomega.Succeed())
		})

		ginkgo.It("should refuse other roles", func() {
			err := resolver.CheckRoles(&Principal{ID: 2, Role: TechnicianRoleName}, []string{SupervisorRoleName})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInsufficientPermissions))
		})

		ginkgo.It("should refuse principals without a role", func() {
			err := resolver.CheckRoles(&Principal{ID: 4}, []string{SupervisorRoleName})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNoRoleAssigned))
		})
	})

	ginkgo.Describe("auxiliary queries", func() {
		ginkgo.It("should answer single permissions", func() {
			ok, err := resolver.HasPermission(ctx, 2, "tickets:read")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			ok, err = resolver.HasPermission(ctx, 4, "tickets:read")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("should answer all and any", func() {
			all, err := resolver.HasAllPermissions(ctx, 2, []string{"tickets:read", "tickets:delete"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(all).To(gomega.BeFalse())

			anyOf, err := resolver.HasAnyPermission(ctx, 2, []string{"tickets:read", "tickets:delete"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(anyOf).To(gomega.BeTrue())

			anyOf, err = resolver.HasAnyPermission(ctx, 3, []string{"documents:delete"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(anyOf).To(gomega.BeTrue())
		})

		ginkgo.It("should list user permissions", func() {
			perms, err := resolver.GetUserPermissions(ctx, 2)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(perms).To(gomega.ConsistOf("tickets:read", "tickets:update"))

			perms, err = resolver.GetUserPermissions(ctx, 4)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(perms).To(gomega.BeEmpty())
		})

		ginkgo.It("should check resource actions", func() {
			ok, err := resolver.CanAccessResource(ctx, 2, "tickets", "update")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			ok, err = resolver.CanAccessResource(ctx, 2, "users", "update")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("should recognise admins and full resource managers", func() {
			admin, err := resolver.IsAdmin(ctx, 3)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(admin).To(gomega.BeTrue())

			manage, err := resolver.CanManageResource(ctx, 2, "tickets")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(manage).To(gomega.BeFalse())

			manage, err = resolver.CanManageResource(ctx, 1, "tickets")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(manage).To(gomega.BeTrue())
		})

		ginkgo.It("should filter candidate permissions", func() {
			held, err := resolver.FilterByPermissions(ctx, 2, []string{"tickets:read", "users:read", "tickets:update"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(held).To(gomega.Equal([]string{"tickets:read", "tickets:update"}))
		})
	})
})

var _ = ginkgo.Describe("Permission name builders", func() {
	ginkgo.It("should build resource action names", func() {
		gomega.Expect(CanCreate("tickets")).To(gomega.Equal([]string{"tickets:create"}))
		gomega.Expect(CanRead("tickets")).To(gomega.Equal([]string{"tickets:read"}))
		gomega.Expect(CanUpdate("tickets")).To(gomega.Equal([]string{"tickets:update"}))
		gomega.Expect(CanDelete("tickets")).To(gomega.Equal([]string{"tickets:delete"}))
		gomega.Expect(CanManage("users")).To(gomega.Equal([]string{"users:create", "users:read", "users:update", "users:delete"}))
		gomega.Expect(AdminOnly()).To(gomega.Equal([]string{"admin:*"}))
		gomega.Expect(OwnerOrAdmin("documents")).To(gomega.Equal([]string{"documents:own", "admin:*"}))
	})

	ginkgo.It("should split well formed names only", func() {
		resource, action, ok := SplitPermissionName("users:read")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(resource).To(gomega.Equal("users"))
		gomega.Expect(action).To(gomega.Equal("read"))

		_, _, ok = SplitPermissionName("users")
		gomega.Expect(ok).To(gomega.BeFalse())
		_, _, ok = SplitPermissionName(":read")
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
