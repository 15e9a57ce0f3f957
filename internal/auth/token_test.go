package auth

import (
	"context"
	"sync"
	"time"

	"github.com/nhatdang2003/tms-backend/internal"
	userDatamodel "github.com/nhatdang2003/tms-backend/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("TokenService", func() {
	var (
		ctx       context.Context
		accounts  *mockAccounts
		tokenRepo *mockTokenRepo
		tokens    *TokenService
		subject   *Subject
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		accounts = newMockAccounts()
		tokenRepo = newMockTokenRepo(accounts)
		tokens = NewTokenService(testTokenConfig(), tokenRepo, &recordingPublisher{}, nil, discardLogger())
		_, technician, _ := testRoles()
		subject = SubjectFromDataModel(accounts.add(7, "tech@example.com", userDatamodel.StatusActive, technician))
	})

	ginkgo.Describe("NewTokenConfig", func() {
		ginkgo.It("should parse day based lifetimes", func() {
			cfg := NewTokenConfig(internal.SecurityConfig{AccessTokenTTL: "30m", RefreshTokenTTL: "14d"}, discardLogger())
			gomega.Expect(cfg.AccessTTL).To(gomega.Equal(30 * time.Minute))
			gomega.Expect(cfg.RefreshTTL).To(gomega.Equal(14 * 24 * time.Hour))
			gomega.Expect(cfg.PasswordResetTTL).To(gomega.Equal(internal.DefaultPasswordResetTTL))
		})

		ginkgo.It("should fall back per token type on unusable values", func() {
			cfg := NewTokenConfig(internal.SecurityConfig{AccessTokenTTL: "1w", RefreshTokenTTL: "soon"}, discardLogger())
			gomega.Expect(cfg.AccessTTL).To(gomega.Equal(internal.DefaultAccessTokenTTL))
			gomega.Expect(cfg.RefreshTTL).To(gomega.Equal(internal.DefaultRefreshTokenTTL))
		})
	})

	ginkgo.Describe("GenerateTokenPair", func() {
		ginkgo.It("should store the refresh token with the JWT expiry", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{DeviceInfo: "agent", IPAddress: "127.0.0.1"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rows := tokenRepo.live(7)
			gomega.Expect(rows).To(gomega.HaveLen(1))
			gomega.Expect(rows[0].ExpiresAt.Equal(pair.RefreshExpiresAt)).To(gomega.BeTrue())
			gomega.Expect(rows[0].IPAddress).To(gomega.Equal("127.0.0.1"))
		})

		ginkgo.It("should take over the device row when a concurrent login inserted first", func() {
			_, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{DeviceInfo: "agent"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			tokenRepo.staleLookups = 1
			second, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{DeviceInfo: "agent"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rows := tokenRepo.live(7)
			gomega.Expect(rows).To(gomega.HaveLen(1))
			gomega.Expect(rows[0].Token).To(gomega.Equal(second.RefreshToken))
		})

		ginkgo.It("should leave one live session after parallel logins from one device", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer ginkgo.GinkgoRecover()
					_, _ = tokens.GenerateTokenPair(ctx, subject, IssueOptions{DeviceInfo: "agent"})
				}()
			}
			wg.Wait()

			gomega.Expect(tokenRepo.live(7)).To(gomega.HaveLen(1))
		})

		ginkgo.It("should mint distinct tokens within the same second", func() {
			fixed := time.Now()
			tokens.now = func() time.Time { return fixed }

			first, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			second, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(first.AccessToken).ToNot(gomega.Equal(second.AccessToken))
			gomega.Expect(first.RefreshToken).ToNot(gomega.Equal(second.RefreshToken))
		})

		ginkgo.It("should fail without a signing secret", func() {
			cfg := testTokenConfig()
			cfg.RefreshSecret = nil
			tokens = NewTokenService(cfg, tokenRepo, nil, nil, discardLogger())

			_, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeInternal))
		})
	})

	ginkgo.Describe("VerifyAccessToken", func() {
		ginkgo.It("should reject refresh tokens", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokens.VerifyAccessToken(pair.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject password reset tokens", func() {
			reset, _, err := tokens.SignPasswordResetToken(subject)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokens.VerifyAccessToken(reset)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should report expired tokens", func() {
			tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			tokens.now = time.Now
			_, err = tokens.VerifyAccessToken(pair.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject tampered tokens", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokens.VerifyAccessToken(pair.AccessToken + "x")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewTokenService(TokenConfig{
				AccessSecret:  []byte("another-secret"),
				RefreshSecret: []byte("another-refresh"),
				AccessTTL:     time.Minute,
				RefreshTTL:    time.Hour,
			}, newMockTokenRepo(nil), nil, nil, discardLogger())
			pair, err := other.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokens.VerifyAccessToken(pair.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("VerifyRefreshToken", func() {
		ginkgo.It("should return the stored row with its user", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			row, claims, err := tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(row.User).ToNot(gomega.BeNil())
			gomega.Expect(row.User.Email).To(gomega.Equal("tech@example.com"))
			gomega.Expect(claims.TokenType).To(gomega.Equal(TokenTypeRefresh))
		})

		ginkgo.It("should reject access tokens", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, _, err = tokens.VerifyRefreshToken(ctx, pair.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should report tokens without a row", func() {
			pair, err := tokens.signPair(subject, tokens.clock(), tokens.clock().Add(time.Hour))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, _, err = tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenNotFound))
		})

		ginkgo.It("should report revoked tokens", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			revoked, err := tokens.RevokeRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(revoked).To(gomega.BeTrue())

			_, _, err = tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenRevoked))

			revoked, err = tokens.RevokeRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(revoked).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("GenerateTokenPairWithExistingExpiration", func() {
		ginkgo.It("should keep the original expiry to the second", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			row, _, err := tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rotated, err := tokens.GenerateTokenPairWithExistingExpiration(ctx, subject, row.ExpiresAt.Unix(), row, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rotated.RefreshExpiresAt.Unix()).To(gomega.Equal(pair.RefreshExpiresAt.Unix()))

			_, claims, err := tokens.VerifyRefreshToken(ctx, rotated.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.ExpiresAt.Unix()).To(gomega.Equal(pair.RefreshExpiresAt.Unix()))
		})

		ginkgo.It("should refuse an expiry in the past", func() {
			past := time.Now().Add(-time.Minute).Unix()
			_, err := tokens.GenerateTokenPairWithExistingExpiration(ctx, subject, past, nil, IssueOptions{})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should refuse a row that was already rotated", func() {
			pair, err := tokens.GenerateTokenPair(ctx, subject, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			row, _, err := tokens.VerifyRefreshToken(ctx, pair.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokens.GenerateTokenPairWithExistingExpiration(ctx, subject, row.ExpiresAt.Unix(), row, IssueOptions{})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = tokens.GenerateTokenPairWithExistingExpiration(ctx, subject, row.ExpiresAt.Unix(), row, IssueOptions{})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenRevoked))
		})
	})
})
