package organization_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nhatdang2003/tms-backend/internal"
	organizationDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/organization"
	"github.com/nhatdang2003/tms-backend/internal/organization"
	organizationPostgres "github.com/nhatdang2003/tms-backend/internal/organization/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOrganization(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Organization Suite")
}

func strPtr(s string) *string { return &s }

var _ = Describe("Organization Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *organization.Service
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&organizationDatamodel.Organization{})).To(Succeed())

		service = organization.NewService(
			organizationPostgres.NewOrganizationRepository(db),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)
	})

	Describe("Create", func() {
		It("should create an organization", func() {
			org, err := service.Create(ctx, organization.CreateOrganizationDTO{Name: "Acme", Address: "1 Main St"})
			Expect(err).NotTo(HaveOccurred())
			Expect(org.ID).To(BeNumerically(">", 0))
			Expect(org.Name).To(Equal("Acme"))
		})

		It("should reject a duplicate name", func() {
			_, err := service.Create(ctx, organization.CreateOrganizationDTO{Name: "Acme"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, organization.CreateOrganizationDTO{Name: "Acme"})
			Expect(err).To(MatchError(internal.ErrOrganizationNameTaken))
		})

		It("should require a name", func() {
			_, err := service.Create(ctx, organization.CreateOrganizationDTO{Name: "  "})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Update", func() {
		var acme *organization.Organization

		BeforeEach(func() {
			var err error
			acme, err = service.Create(ctx, organization.CreateOrganizationDTO{Name: "Acme", Description: "old"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, organization.CreateOrganizationDTO{Name: "Globex"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep the name when it is resent unchanged", func() {
			org, err := service.Update(ctx, acme.ID, organization.UpdateOrganizationDTO{
				Name:        strPtr("Acme"),
				Description: strPtr("new"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(org.Name).To(Equal("Acme"))
			Expect(org.Description).To(Equal("new"))
		})

		It("should leave unset fields alone", func() {
			org, err := service.Update(ctx, acme.ID, organization.UpdateOrganizationDTO{Address: strPtr("2 Side St")})
			Expect(err).NotTo(HaveOccurred())
			Expect(org.Description).To(Equal("old"))
			Expect(org.Address).To(Equal("2 Side St"))
		})

		It("should reject renaming onto another organization", func() {
			_, err := service.Update(ctx, acme.ID, organization.UpdateOrganizationDTO{Name: strPtr("Globex")})
			Expect(err).To(MatchError(internal.ErrOrganizationNameTaken))
		})

		It("should report unknown organizations", func() {
			_, err := service.Update(ctx, 999, organization.UpdateOrganizationDTO{Name: strPtr("X")})
			Expect(err).To(MatchError(internal.ErrOrganizationNotFound))
		})
	})

	Describe("Delete", func() {
		It("should hide deleted organizations but keep their name reserved", func() {
			org, err := service.Create(ctx, organization.CreateOrganizationDTO{Name: "Initech"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, org.ID)).To(Succeed())

			_, err = service.Get(ctx, org.ID)
			Expect(err).To(MatchError(internal.ErrOrganizationNotFound))

			list, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			_, err = service.Create(ctx, organization.CreateOrganizationDTO{Name: "Initech"})
			Expect(err).To(MatchError(internal.ErrOrganizationNameTaken))
		})
	})
})

var _ = Describe("Patch", func() {
	It("should apply only the fields it sets", func() {
		base := organization.Organization{Name: "A", Description: "d", Address: "x"}
		out := organization.Patch{Address: strPtr("y")}.Apply(base)
		Expect(out).To(Equal(organization.Organization{Name: "A", Description: "d", Address: "y"}))
		Expect(base.Address).To(Equal("x"))
	})

	It("should only report real renames", func() {
		Expect(organization.Patch{}.RenamesFrom("A")).To(BeFalse())
		Expect(organization.Patch{Name: strPtr("A")}.RenamesFrom("A")).To(BeFalse())
		Expect(organization.Patch{Name: strPtr("B")}.RenamesFrom("A")).To(BeTrue())
	})
})
