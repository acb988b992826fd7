package mongo

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/electrix/tracker/internal/core/domain"
)

// Collections of the self-hosted backend.
const (
	collUsers        = "auth_users"
	collSessions     = "auth_sessions"
	collProfiles     = "profiles"
	collClients      = "clients"
	collProjects     = "projects"
	collHousingUnits = "housing_units"
	collTransactions = "transactions"
)

type userDoc struct {
	ID           string      `bson:"_id"`
	Email        string      `bson:"email"`
	PasswordHash string      `bson:"password_hash"`
	Metadata     metadataDoc `bson:"user_metadata"`
	CreatedAt    time.Time   `bson:"created_at"`
}

type metadataDoc struct {
	FullName string `bson:"full_name,omitempty"`
	RUT      string `bson:"rut,omitempty"`
	Role     string `bson:"role,omitempty"`
}

func (d userDoc) toDomain() domain.AuthUser {
	return domain.AuthUser{
		ID:    d.ID,
		Email: d.Email,
		Metadata: domain.UserMetadata{
			FullName: d.Metadata.FullName,
			RUT:      d.Metadata.RUT,
			Role:     domain.Role(d.Metadata.Role),
		},
	}
}

// sessionDoc is one backend session. Only the hash of the refresh token is
// stored; the access token is a JWT naming the session in its jti.
type sessionDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	RefreshHash string    `bson:"refresh_hash"`
	ExpiresAt   time.Time `bson:"expires_at"`
	CreatedAt   time.Time `bson:"created_at"`
}

type profileDoc struct {
	ID        string    `bson:"_id"`
	RUT       string    `bson:"rut"`
	FullName  string    `bson:"full_name"`
	Role      string    `bson:"role"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d profileDoc) toDomain() domain.Profile {
	return domain.Profile{
		ID:        d.ID,
		RUT:       d.RUT,
		FullName:  d.FullName,
		Role:      domain.Role(d.Role),
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
	}
}

type clientDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Type      string    `bson:"type"`
	RUT       string    `bson:"rut,omitempty"`
	CreatedBy string    `bson:"created_by,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d clientDoc) toDomain() domain.Client {
	return domain.Client{
		ID:        d.ID,
		Name:      d.Name,
		Type:      d.Type,
		RUT:       d.RUT,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
	}
}

type projectDoc struct {
	ID        string    `bson:"_id"`
	ClientID  string    `bson:"client_id"`
	Name      string    `bson:"name"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d projectDoc) toDomain() domain.Project {
	return domain.Project{
		ID:        d.ID,
		ClientID:  d.ClientID,
		Name:      d.Name,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

type housingUnitDoc struct {
	ID        string          `bson:"_id"`
	ProjectID string          `bson:"project_id"`
	Name      string          `bson:"name"`
	Status    map[string]bool `bson:"status"`
	Comments  string          `bson:"comments"`
	Images    []string        `bson:"images"`
	CreatedAt time.Time       `bson:"created_at"`
}

func (d housingUnitDoc) toDomain() domain.HousingUnit {
	status := domain.Checklist(d.Status)
	if status == nil {
		status = domain.Checklist{}
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return domain.HousingUnit{
		ID:        d.ID,
		ProjectID: d.ProjectID,
		Name:      d.Name,
		Status:    status,
		Comments:  d.Comments,
		Images:    images,
		CreatedAt: d.CreatedAt,
	}
}

type transactionDoc struct {
	ID          string               `bson:"_id"`
	Type        string               `bson:"type"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Category    string               `bson:"category"`
	Description string               `bson:"description"`
	Date        string               `bson:"date"`
	CreatedBy   string               `bson:"created_by,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func (d transactionDoc) toDomain() domain.Transaction {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		amount = decimal.Zero
	}
	return domain.Transaction{
		ID:          d.ID,
		Type:        domain.TransactionType(d.Type),
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
	}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

// bsonValue converts domain values the driver cannot encode as is.
func bsonValue(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return toDecimal128(x)
	case domain.Checklist:
		return map[string]bool(x), nil
	default:
		return v, nil
	}
}
