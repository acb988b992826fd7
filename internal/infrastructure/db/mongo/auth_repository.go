package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/electrix/tracker/internal/core/domain"
)

// AuthRepository keeps auth identities and their sessions. It implements
// both ports.AuthGateway and ports.CredentialIssuer.
type AuthRepository struct {
	users    *mongo.Collection
	sessions *mongo.Collection
	tokens   tokenIssuer
}

func newAuthRepository(db *mongo.Database, tokens tokenIssuer) *AuthRepository {
	return &AuthRepository{
		users:    db.Collection(collUsers),
		sessions: db.Collection(collSessions),
		tokens:   tokens,
	}
}

func (r *AuthRepository) SignIn(ctx context.Context, email, password string) (_ *domain.AuthSession, err error) {
	defer observe("auth.sign_in", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u userDoc
	if err := r.users.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
		}
		return nil, mapErr("sign in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
	}
	return r.startSession(ctx, u)
}

func (r *AuthRepository) Refresh(ctx context.Context, refreshToken string) (_ *domain.AuthSession, err error) {
	defer observe("auth.refresh", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.tokens.now()
	token, hash := newRefreshToken()
	var s sessionDoc
	err = r.sessions.FindOneAndUpdate(ctx,
		bson.M{"refresh_hash": hashToken(refreshToken), "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"refresh_hash": hash, "expires_at": now.Add(refreshTTL)}},
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("refresh: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, mapErr("refresh", err)
	}

	u, err := r.user(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	return r.session(u, s.ID, token)
}

// SignOut revokes the session named by the token. Unparseable tokens are
// ignored since they cannot name a live session.
func (r *AuthRepository) SignOut(ctx context.Context, accessToken string) (err error) {
	defer observe("auth.sign_out", time.Now(), &err)
	claims, perr := r.tokens.parse(accessToken, true)
	if perr != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if _, err := r.sessions.DeleteOne(ctx, bson.M{"_id": claims.ID}); err != nil {
		return mapErr("sign out", err)
	}
	return nil
}

// SignUp creates a confirmed identity and opens a session for it.
func (r *AuthRepository) SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (_ *domain.AuthSession, err error) {
	defer observe("auth.sign_up", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := userDoc{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		Metadata: metadataDoc{
			FullName: meta.FullName,
			RUT:      meta.RUT,
			Role:     string(meta.Role),
		},
		CreatedAt: r.tokens.now().UTC(),
	}
	if _, err := r.users.InsertOne(ctx, u); err != nil {
		return nil, mapErr("sign up", err)
	}
	return r.startSession(ctx, u)
}

// verify resolves an access token to its user id. Revoked sessions are
// rejected even while the token itself has not expired.
func (r *AuthRepository) verify(ctx context.Context, accessToken string) (string, error) {
	claims, err := r.tokens.parse(accessToken, false)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	n, err := r.sessions.CountDocuments(ctx, bson.M{"_id": claims.ID, "user_id": claims.Subject})
	if err != nil {
		return "", mapErr("verify session", err)
	}
	if n == 0 {
		return "", fmt.Errorf("session revoked: %w", domain.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// setPassword replaces the user's password and revokes its sessions.
func (r *AuthRepository) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	res, err := r.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"password_hash": string(hash)}})
	if err != nil {
		return mapErr("set password", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set password %s: %w", userID, domain.ErrNotFound)
	}
	if _, err := r.sessions.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return mapErr("revoke sessions", err)
	}
	return nil
}

func (r *AuthRepository) startSession(ctx context.Context, u userDoc) (*domain.AuthSession, error) {
	now := r.tokens.now()
	token, hash := newRefreshToken()
	s := sessionDoc{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		RefreshHash: hash,
		ExpiresAt:   now.Add(refreshTTL),
		CreatedAt:   now,
	}
	if _, err := r.sessions.InsertOne(ctx, s); err != nil {
		return nil, mapErr("start session", err)
	}
	return r.session(u, s.ID, token)
}

func (r *AuthRepository) session(u userDoc, sessionID, refreshToken string) (*domain.AuthSession, error) {
	access, exp, err := r.tokens.sign(u.ID, u.Email, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthSession{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		User:         u.toDomain(),
	}, nil
}

func (r *AuthRepository) user(ctx context.Context, id string) (userDoc, error) {
	var u userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return u, fmt.Errorf("user %s: %w", id, domain.ErrUnauthenticated)
		}
		return u, mapErr("find user", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
