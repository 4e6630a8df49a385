package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
)

type documentDTO struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	Embedding []float32 `bson:"embedding"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store keeps documents in a single collection keyed by document ID.
type Store struct {
	coll *mongo.Collection
}

// NewStore creates a document store over coll.
func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Insert writes a document, replacing any document with the same ID.
func (s *Store) Insert(ctx context.Context, doc *domdoc.Document) error {
	dto := documentDTO{
		ID:        doc.ID(),
		Title:     doc.Title(),
		Content:   doc.Content(),
		Embedding: doc.Embedding(),
		CreatedAt: doc.CreatedAt(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": dto.ID}, dto, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", dto.ID, err)
	}
	return nil
}

// Scan returns all searchable documents matching f, oldest first.
func (s *Store) Scan(ctx context.Context, f filter.Filter) ([]domdoc.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)

	var dtos []documentDTO
	if err := cur.All(ctx, &dtos); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}

	out := make([]domdoc.Document, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domdoc.Reconstruct(d.ID, d.Title, d.Content, d.Embedding, d.CreatedAt))
	}
	return out, nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// buildFilter translates a candidate filter into a query document.
// title/content use a case-insensitive literal regex; full-text uses the text index.
func buildFilter(f filter.Filter) bson.D {
	q := bson.D{{Key: "embedding.0", Value: bson.M{"$exists": true}}}

	if f.Text() != "" {
		switch f.Field() {
		case field.FullText:
			q = append(q, bson.E{Key: "$text", Value: bson.M{"$search": f.Text()}})
		case field.Content:
			q = append(q, bson.E{Key: "content", Value: literalRegex(f.Text())})
		default:
			q = append(q, bson.E{Key: "title", Value: literalRegex(f.Text())})
		}
	}

	dates := f.Dates()
	if !dates.IsZero() {
		rng := bson.M{}
		if start := dates.Start(); start != nil {
			rng["$gte"] = *start
		}
		if end := dates.End(); end != nil {
			rng["$lte"] = *end
		}
		q = append(q, bson.E{Key: "created_at", Value: rng})
	}
	return q
}

func literalRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
