package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrNotConfigured means Firebase login is switched off
var ErrNotConfigured = errors.New("firebase credentials path not provided")

// App holds the Firebase app and the auth client used to verify ID tokens
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase loads service account credentials from credentialsPath.
// An empty path returns ErrNotConfigured.
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, ErrNotConfigured
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting firebase auth client: %w", err)
	}

	log.Info().Str("credentials", credentialsPath).Msg("Firebase login enabled")
	return &App{FirebaseApp: app, AuthClient: client}, nil
}

// Identity is what a swaply account needs from a verified ID token
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
}

// IdentityFromToken reads the uid and normalized email from a verified token
func IdentityFromToken(token *auth.Token) Identity {
	id := Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = strings.ToLower(strings.TrimSpace(email))
	}
	id.EmailVerified, _ = token.Claims["email_verified"].(bool)
	return id
}
