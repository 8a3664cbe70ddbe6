package user

import (
	"context"
	"errors"
	"time"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

var (
	ErrInvalidGoogleToken = errors.New("invalid Google ID token")
	ErrAccountDeactivated = errors.New("account deactivated")
)

// verifyGoogleTokenFunc checks the ID token against the client ID and
// returns the Google subject and email. Mockable for tests.
var verifyGoogleTokenFunc = func(idToken, clientID string) (sub, email string, err error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err = v.VerifyIDToken(idToken, []string{clientID}); err != nil {
		return "", "", err
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return "", "", err
	}
	return claims.Sub, claims.Email, nil
}

// AuthenticateGoogle verifies a Google-issued ID token and resolves it to
// an existing active account, matching by Google subject first and then by
// email. Only token verification lives here; the OAuth redirect dance is
// the frontend's business.
func (svc *Service) AuthenticateGoogle(ctx context.Context, idToken string) (User, error) {
	sub, email, err := verifyGoogleTokenFunc(idToken, svc.conf.GoogleClientID)
	if err != nil {
		return User{}, ErrInvalidGoogleToken
	}

	if usr, err := svc.repo.GetUserByGoogleID(ctx, sub); err == nil {
		if !usr.IsActive {
			return User{}, ErrAccountDeactivated
		}
		return usr, nil
	}

	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	// remember the subject so the next sign-in resolves directly
	usr.GoogleID = sub
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}
