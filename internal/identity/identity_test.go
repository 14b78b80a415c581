package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mployhr/recruitdash/internal/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSignIn(t *testing.T) {
	Convey("Given a signer", t, func() {
		signer := identity.NewSigner("secret-key")
		ctx := context.Background()

		Convey("When no token is configured", func() {
			s, err := identity.NewTokenProvider(signer, "").SignIn(ctx)

			Convey("Then the session should be anonymous with a generated id", func() {
				So(err, ShouldBeNil)
				So(s.Anonymous, ShouldBeTrue)
				_, perr := uuid.Parse(s.UserID)
				So(perr, ShouldBeNil)
			})
		})

		Convey("When a valid custom token is configured", func() {
			token, ierr := signer.Issue("recruiter-42")
			So(ierr, ShouldBeNil)
			s, err := identity.NewTokenProvider(signer, token).SignIn(ctx)

			Convey("Then the session should carry its user id", func() {
				So(err, ShouldBeNil)
				So(s.Anonymous, ShouldBeFalse)
				So(s.UserID, ShouldEqual, "recruiter-42")
				So(s.SignedInAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the token was signed with another key", func() {
			token, ierr := identity.NewSigner("other").Issue("recruiter-42")
			So(ierr, ShouldBeNil)
			_, err := identity.NewTokenProvider(signer, token).SignIn(ctx)

			Convey("Then sign-in should fail", func() {
				So(errors.Is(err, identity.ErrSignIn), ShouldBeTrue)
			})
		})

		Convey("When a token uses another algorithm", func() {
			none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "recruiter-42"})
			unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
			hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "recruiter-42"}).
				SignedString([]byte("secret-key"))
			_, err1 := identity.NewTokenProvider(signer, unsigned).SignIn(ctx)
			_, err2 := identity.NewTokenProvider(signer, hs512).SignIn(ctx)

			Convey("Then sign-in should fail", func() {
				So(errors.Is(err1, identity.ErrSignIn), ShouldBeTrue)
				So(errors.Is(err2, identity.ErrSignIn), ShouldBeTrue)
			})
		})

		Convey("When a token has no subject or has expired", func() {
			anon, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).
				SignedString([]byte("secret-key"))
			expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "recruiter-42",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}).SignedString([]byte("secret-key"))
			_, err1 := identity.NewTokenProvider(signer, anon).SignIn(ctx)
			_, err2 := identity.NewTokenProvider(signer, expired).SignIn(ctx)

			Convey("Then sign-in should fail", func() {
				So(errors.Is(err1, identity.ErrSignIn), ShouldBeTrue)
				So(errors.Is(err2, identity.ErrSignIn), ShouldBeTrue)
			})
		})

		Convey("When issuing for an empty user id", func() {
			_, err := signer.Issue(" ")
			So(errors.Is(err, identity.ErrSignIn), ShouldBeTrue)
		})

		Convey("When the token is garbage", func() {
			_, err1 := identity.NewTokenProvider(signer, "nodot").SignIn(ctx)
			_, err2 := identity.NewTokenProvider(signer, "!!.??").SignIn(ctx)

			Convey("Then sign-in should fail", func() {
				So(errors.Is(err1, identity.ErrSignIn), ShouldBeTrue)
				So(errors.Is(err2, identity.ErrSignIn), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := identity.NewTokenProvider(signer, "").SignIn(cctx)

			Convey("Then sign-in should fail", func() {
				So(errors.Is(err, identity.ErrSignIn), ShouldBeTrue)
			})
		})
	})
}
