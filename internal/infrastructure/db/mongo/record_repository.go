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

	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
)

// Collection names per record type.
const (
	PoliciesCollection   = "policies"
	ClaimsCollection     = "claims"
	ComplaintsCollection = "complaints"
)

// RecordRepository stores one numbered record type. E is the document struct
// and P its pointer, which is what the services work with.
type RecordRepository[E any, P interface {
	*E
	domain.NumberedRecord
}] struct {
	coll *mongo.Collection
}

func NewRecordRepository[E any, P interface {
	*E
	domain.NumberedRecord
}](db *mongo.Database, collection string) *RecordRepository[E, P] {
	return &RecordRepository[E, P]{coll: db.Collection(collection)}
}

func NewPolicyRepository(db *mongo.Database) *RecordRepository[domain.Policy, *domain.Policy] {
	return NewRecordRepository[domain.Policy, *domain.Policy](db, PoliciesCollection)
}

func NewClaimRepository(db *mongo.Database) *RecordRepository[domain.Claim, *domain.Claim] {
	return NewRecordRepository[domain.Claim, *domain.Claim](db, ClaimsCollection)
}

func NewComplaintRepository(db *mongo.Database) *RecordRepository[domain.Complaint, *domain.Complaint] {
	return NewRecordRepository[domain.Complaint, *domain.Complaint](db, ComplaintsCollection)
}

// Create inserts rec under a fresh hex id. The unique index on number turns
// a display number collision into domain.ErrDuplicateNumber.
func (r *RecordRepository[E, P]) Create(ctx context.Context, rec P) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	meta := rec.Meta()
	meta.ID = primitive.NewObjectID().Hex()
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		meta.ID = ""
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateNumber
		}
		return fmt.Errorf("insert %s: %w", rec.RecordType(), err)
	}
	return nil
}

func (r *RecordRepository[E, P]) FindByID(ctx context.Context, id string) (P, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc E
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return P(&doc), nil
}

// LatestNumber reads the display number of the newest record.
func (r *RecordRepository[E, P]) LatestNumber(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"number": 1})

	var doc struct {
		Number string `bson:"number"`
	}
	if err := r.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrRecordNotFound
		}
		return "", fmt.Errorf("latest number: %w", err)
	}
	return doc.Number, nil
}

func (r *RecordRepository[E, P]) List(ctx context.Context, f ports.RecordFilter) ([]P, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := listFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	cur, err := r.coll.Find(ctx, filter, listOptions(f))
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer cur.Close(ctx)

	items := make([]P, 0, f.Limit)
	for cur.Next(ctx) {
		var doc E
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode record: %w", err)
		}
		items = append(items, P(&doc))
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate records: %w", err)
	}
	return items, total, nil
}

// UpdateStatus is a compare-and-set: it matches on the expected current
// status and appends the history entry in the same write.
func (r *RecordRepository[E, P]) UpdateStatus(ctx context.Context, id string, change ports.StatusChange) (P, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"status": change.To, "updated_at": now},
		"$push": bson.M{"status_history": domain.StatusHistoryEntry{
			Status:    change.To,
			Timestamp: now,
			ChangedBy: change.ChangedBy,
			Notes:     change.Notes,
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc E
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": change.From}, update, opts).Decode(&doc)
	if err == nil {
		return P(&doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update status: %w", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return nil, &domain.Error{
		Kind:    domain.ErrConflict,
		Reason:  domain.ReasonStaleStatus,
		Message: "status was changed by another request",
	}
}

// EnsureIndexes creates the unique display number index plus the lookups
// used by listing and counter seeding.
func (r *RecordRepository[E, P]) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func listFilter(f ports.RecordFilter) bson.M {
	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func listOptions(f ports.RecordFilter) *options.FindOptions {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
}
