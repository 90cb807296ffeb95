// Package auth verifies the identity tokens the dashboard sends with each request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid identity token")

// DevTokenPrefix marks development tokens of the form "dev:<uid>".
const DevTokenPrefix = "dev:"

// Identity is the verified caller.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initialises the Firebase Admin SDK for projectID.
// credentialsFile may be empty to use application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := &Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	return id, nil
}

// DevVerifier accepts "dev:<uid>" tokens. It is only wired when no Firebase
// project is configured outside production.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	uid, ok := strings.CutPrefix(token, DevTokenPrefix)
	uid = strings.TrimSpace(uid)
	if !ok || uid == "" || len(uid) > 128 {
		return nil, ErrInvalidToken
	}
	return &Identity{UID: uid, DisplayName: uid}, nil
}
