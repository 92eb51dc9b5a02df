package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bugtracker/bug-service/internal/bug"
	"github.com/bugtracker/bug-service/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo server error codes the repository reacts to.
const (
	codeNamespaceExists           = 48
	codeDocumentValidationFailure = 121
)

// MongoRepo stores bugs in a MongoDB collection keyed by ObjectID. Mutations
// use findAndModify so lookup and write are a single atomic step.
type MongoRepo struct {
	col *mongo.Collection
}

type bugDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Severity    string             `bson:"severity"`
	ReportedBy  string             `bson:"reportedBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *bugDocument) toBug() *bug.Bug {
	return &bug.Bug{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      bug.Status(d.Status),
		Severity:    bug.Severity(d.Severity),
		ReportedBy:  d.ReportedBy,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// newest-first listing sorts on createdAt
	idx := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}
	if _, err := col.Indexes().CreateOne(context.Background(), idx); err != nil {
		logger.Warnf("bugs: failed to ensure createdAt index: %v", err)
	}
	return &MongoRepo{col: col}
}

// EnsureCollection creates the bugs collection with a $jsonSchema validator,
// or refreshes the validator when the collection already exists.
func EnsureCollection(ctx context.Context, db *mongo.Database, name string) (*mongo.Collection, error) {
	validator := bson.M{"$jsonSchema": bugSchema()}
	opts := options.CreateCollection().
		SetValidator(validator).
		SetValidationLevel("strict").
		SetValidationAction("error")
	err := db.CreateCollection(ctx, name, opts)
	if err != nil {
		if !hasErrorCode(err, codeNamespaceExists) {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
		cmd := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
			{Key: "validationLevel", Value: "strict"},
			{Key: "validationAction", Value: "error"},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return nil, fmt.Errorf("update validator on %s: %w", name, err)
		}
	}
	return db.Collection(name), nil
}

func bugSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"title", "description", "status", "severity", "reportedBy", "createdAt", "updatedAt"},
		"properties": bson.M{
			"title":       bson.M{"bsonType": "string", "minLength": 1, "maxLength": bug.MaxTitleLength},
			"description": bson.M{"bsonType": "string", "minLength": 1},
			"reportedBy":  bson.M{"bsonType": "string", "minLength": 1},
			"status":      bson.M{"enum": enumValues(bug.Statuses)},
			"severity":    bson.M{"enum": enumValues(bug.Severities)},
			"createdAt":   bson.M{"bsonType": "date"},
			"updatedAt":   bson.M{"bsonType": "date"},
		},
	}
}

func (m *MongoRepo) FindAll(ctx context.Context) ([]*bug.Bug, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find bugs: %w", err)
	}
	defer cur.Close(ctx)
	out := []*bug.Bug{}
	for cur.Next(ctx) {
		var d bugDocument
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode bug: %w", err)
		}
		out = append(out, d.toBug())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate bugs: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) FindByID(ctx context.Context, id string) (*bug.Bug, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d bugDocument
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find bug %s: %w", id, err)
	}
	return d.toBug(), nil
}

func (m *MongoRepo) Create(ctx context.Context, b *bug.Bug) (*bug.Bug, error) {
	now := timestamp()
	d := bugDocument{
		ID:          primitive.NewObjectID(),
		Title:       b.Title,
		Description: b.Description,
		Status:      string(b.Status),
		Severity:    string(b.Severity),
		ReportedBy:  b.ReportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		if hasErrorCode(err, codeDocumentValidationFailure) {
			return nil, &SchemaError{Violations: []string{"Bug failed document validation"}}
		}
		return nil, fmt.Errorf("insert bug: %w", err)
	}
	return d.toBug(), nil
}

func (m *MongoRepo) FindByIDAndUpdate(ctx context.Context, id string, in bug.Input) (*bug.Bug, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"title":       in.Title,
		"description": in.Description,
		"reportedBy":  in.ReportedBy,
		"updatedAt":   timestamp(),
	}
	if in.Status != nil {
		set["status"] = string(*in.Status)
	}
	if in.Severity != nil {
		set["severity"] = string(*in.Severity)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d bugDocument
	err = m.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&d)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case hasErrorCode(err, codeDocumentValidationFailure):
			return nil, &SchemaError{Violations: []string{"Bug failed document validation"}}
		}
		return nil, fmt.Errorf("update bug %s: %w", id, err)
	}
	return d.toBug(), nil
}

func (m *MongoRepo) FindByIDAndDelete(ctx context.Context, id string) (*bug.Bug, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d bugDocument
	if err := m.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete bug %s: %w", id, err)
	}
	return d.toBug(), nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	return oid, nil
}

// timestamp matches the millisecond precision Mongo stores dates with, so
// returned records compare equal to what a later read produces.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func hasErrorCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}

func enumValues[T ~string](vals []T) bson.A {
	out := make(bson.A, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
