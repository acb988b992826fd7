package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/ports"
)

// Options configures the self-hosted backend.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	// PublicURL is the externally reachable base URL public objects are
	// served under.
	PublicURL string
}

// Backend is the MongoDB driver of ports.Backend. It applies the same
// row-level rules a hosted backend would, evaluated for the identity of
// each gateway.
type Backend struct {
	db        *mongo.Database
	auth      *AuthRepository
	publicURL string
	log       zerolog.Logger
}

var _ ports.Backend = (*Backend)(nil)

func New(db *mongo.Database, opts Options, log zerolog.Logger) *Backend {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Backend{
		db:        db,
		auth:      newAuthRepository(db, tokenIssuer{secret: []byte(opts.JWTSecret), ttl: ttl, now: time.Now}),
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		log:       log,
	}
}

func (b *Backend) Auth() ports.AuthGateway { return b.auth }

func (b *Backend) Ephemeral() ports.CredentialIssuer { return b.auth }

func (b *Backend) As(session *domain.AuthSession) ports.Gateway {
	token := ""
	if session != nil {
		token = session.AccessToken
	}
	return &gateway{b: b, token: token}
}

// Files serves public objects; see ObjectHandler.
func (b *Backend) Files() *Files {
	return &Files{db: b.db}
}

// EnsureIndexes creates the indexes every collection relies on.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collSessions: {
			{Keys: bson.D{{Key: "refresh_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		collProfiles: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		collClients: {
			{Keys: bson.D{{Key: "rut", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		collProjects: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collHousingUnits: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		collTransactions: {
			{Keys: bson.D{{Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}}},
		},
	}
	for coll, indexes := range specs {
		if _, err := b.db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// gateway acts for the identity owning token. The identity is resolved on
// first use and kept for the gateway's lifetime, which is one request.
type gateway struct {
	b     *Backend
	token string

	mu     sync.Mutex
	who    *caller
	whoErr error
}

func (g *gateway) caller(ctx context.Context) (caller, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.who != nil || g.whoErr != nil {
		if g.whoErr != nil {
			return caller{}, g.whoErr
		}
		return *g.who, nil
	}

	c, err := g.resolve(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			g.whoErr = err
		}
		return caller{}, err
	}
	g.who = &c
	return c, nil
}

func (g *gateway) resolve(ctx context.Context) (caller, error) {
	if g.token == "" {
		return caller{}, fmt.Errorf("no access token: %w", domain.ErrUnauthenticated)
	}
	userID, err := g.b.auth.verify(ctx, g.token)
	if err != nil {
		return caller{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	var p profileDoc
	err = g.b.db.Collection(collProfiles).FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return caller{userID: userID}, nil
	case err != nil:
		return caller{}, mapErr("resolve caller", err)
	}
	profile := p.toDomain()
	return caller{userID: userID, profile: &profile}, nil
}

func (g *gateway) Profiles() ports.ProfileRepository {
	return &ProfileRepository{g: g, col: g.b.db.Collection(collProfiles)}
}

func (g *gateway) Clients() ports.ClientRepository {
	return &ClientRepository{g: g, db: g.b.db}
}

func (g *gateway) Projects() ports.ProjectRepository {
	return &ProjectRepository{g: g, db: g.b.db}
}

func (g *gateway) HousingUnits() ports.HousingUnitRepository {
	return &HousingUnitRepository{g: g, db: g.b.db}
}

func (g *gateway) Transactions() ports.TransactionRepository {
	return &TransactionRepository{g: g, col: g.b.db.Collection(collTransactions)}
}

func (g *gateway) Storage() ports.ObjectStorage {
	return &Storage{g: g, files: g.b.Files(), publicURL: g.b.publicURL}
}

func (g *gateway) Procedures() ports.ProcedureCaller {
	return &Procedures{g: g}
}
