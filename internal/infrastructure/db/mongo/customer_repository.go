package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/silianos/voyage-api/internal/core/domain"
)

const collectionCustomers = "users"

// CustomerRepository implements ports.CustomerRepository on the users collection.
type CustomerRepository struct {
	col *mongo.Collection
}

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{col: db.Collection(collectionCustomers)}
}

type customerDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Email             string             `bson:"email"`
	PasswordHash      string             `bson:"password_hash"`
	Name              string             `bson:"name"`
	Phone             *string            `bson:"phone"`
	PreferredCurrency string             `bson:"preferred_currency"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func (d *customerDoc) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Name:              d.Name,
		Phone:             d.Phone,
		PreferredCurrency: d.PreferredCurrency,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := customerDoc{
		Email:             c.Email,
		PasswordHash:      c.PasswordHash,
		Name:              c.Name,
		Phone:             c.Phone,
		PreferredCurrency: c.PreferredCurrency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if doc.PreferredCurrency == "" {
		doc.PreferredCurrency = domain.DefaultCurrency
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	doc.ID, _ = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("User")
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CustomerRepository) findOne(ctx context.Context, filter bson.M) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc customerDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("User")
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return doc.toDomain(), nil
}

// EmailTaken reports whether a customer other than excludeID holds email.
func (r *CustomerRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"email": email}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count customers: %w", err)
	}
	return n > 0, nil
}

func (r *CustomerRepository) Update(ctx context.Context, id string, changes domain.CustomerChanges) (*domain.Customer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("User")
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if changes.Name != nil {
		set["name"] = *changes.Name
	}
	if changes.Email != nil {
		set["email"] = *changes.Email
	}
	if changes.PhoneSet {
		set["phone"] = changes.Phone
	}
	if changes.PreferredCurrency != nil {
		set["preferred_currency"] = *changes.PreferredCurrency
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc customerDoc
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.NotFound("User")
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the unique email index on the users collection.
func (r *CustomerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
