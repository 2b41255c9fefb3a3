package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/repository"
)

type sweetDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Category  string    `bson:"category"`
	Price     float64   `bson:"price"`
	Quantity  int64     `bson:"quantity"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d sweetDocument) toDomain() *domain.Sweet {
	return &domain.Sweet{
		ID:        d.ID,
		Name:      d.Name,
		Category:  d.Category,
		Price:     d.Price,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type sweetRepository struct {
	coll *mongo.Collection
}

// NewSweetRepository returns a MongoDB-backed catalog store.
func NewSweetRepository(db *mongo.Database) repository.SweetRepository {
	return &sweetRepository{coll: db.Collection(sweetsCollection)}
}

func (r *sweetRepository) Create(ctx context.Context, sweet *domain.Sweet) error {
	now := time.Now().UTC()
	sweet.CreatedAt = now
	sweet.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, sweetDocument{
		ID:        sweet.ID,
		Name:      sweet.Name,
		Category:  sweet.Category,
		Price:     sweet.Price,
		Quantity:  sweet.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("insert sweet: %w", err)
	}
	return nil
}

func (r *sweetRepository) GetByID(ctx context.Context, id string) (*domain.Sweet, error) {
	var doc sweetDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapNoDocuments(err)
	}
	return doc.toDomain(), nil
}

func (r *sweetRepository) List(ctx context.Context, filter repository.SweetFilter) ([]domain.Sweet, error) {
	query := bson.M{}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.Name != nil && strings.TrimSpace(*filter.Name) != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(*filter.Name)), "$options": "i"}
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find sweets: %w", err)
	}
	defer cursor.Close(ctx)

	result := []domain.Sweet{}
	for cursor.Next(ctx) {
		var doc sweetDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode sweet: %w", err)
		}
		result = append(result, *doc.toDomain())
	}
	return result, cursor.Err()
}

func (r *sweetRepository) Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *sweetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete sweet: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sweetRepository) Decrement(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": amount}}
	update := bson.M{
		"$inc": bson.M{"quantity": -amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	sweet, err := r.findOneAndUpdate(ctx, filter, update)
	if !errors.Is(err, repository.ErrNotFound) {
		return sweet, err
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("count sweet: %w", err)
	}
	if count == 0 {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrInsufficientStock
}

func (r *sweetRepository) Increment(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	update := bson.M{
		"$inc": bson.M{"quantity": amount},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *sweetRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Sweet, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc sweetDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, mapNoDocuments(err)
	}
	return doc.toDomain(), nil
}
