package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/models"
)

// Field paths of the statements collection.
const (
	fieldStoreID         = "lrs_id"
	fieldTimestamp       = "timestamp"
	fieldMbox            = "statement.actor.mbox"
	fieldOpenID          = "statement.actor.openid"
	fieldMboxSha1Sum     = "statement.actor.mbox_sha1sum"
	fieldAccountName     = "statement.actor.account.name"
	fieldAccountHomePage = "statement.actor.account.homePage"
)

// StatementRepository aggregates statements stored in MongoDB with native
// aggregation pipelines.
type StatementRepository struct {
	collection *mongo.Collection
}

var (
	_ dashboard.Aggregator = (*StatementRepository)(nil)
	_ dashboard.Scanner    = (*StatementRepository)(nil)
)

func NewStatementRepository(db *mongo.Database) *StatementRepository {
	return &StatementRepository{
		collection: db.Collection("statements"),
	}
}

// CountStatements counts statements matching the filter
func (r *StatementRepository) CountStatements(ctx context.Context, f dashboard.Filter) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, statementMatch(f))
	if err != nil {
		return 0, mongoError("count statements", err)
	}
	return n, nil
}

// EarliestTimestamp finds the oldest matching statement
func (r *StatementRepository) EarliestTimestamp(ctx context.Context, f dashboard.Filter) (time.Time, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: fieldTimestamp, Value: 1}}).
		SetProjection(bson.M{fieldTimestamp: 1})

	var doc struct {
		Timestamp time.Time `bson:"timestamp"`
	}
	err := r.collection.FindOne(ctx, statementMatch(f), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, mongoError("find earliest statement", err)
	}
	return doc.Timestamp.UTC(), true, nil
}

// CountByDay aggregates statement count by UTC day
func (r *StatementRepository) CountByDay(ctx context.Context, f dashboard.Filter) ([]dashboard.DayCount, error) {
	return r.dayCounts(ctx, "count by day", countByDayPipeline(f))
}

// CountDistinctActors counts distinct actors of one identity variant
func (r *StatementRepository) CountDistinctActors(ctx context.Context, f dashboard.Filter) (int64, error) {
	pipeline, err := distinctActorsPipeline(f)
	if err != nil {
		return 0, err
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, mongoError("count distinct actors", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Count int64 `bson:"count"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, mongoError("count distinct actors", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Count, nil
}

// CountDistinctActorsByDay counts distinct actors of one identity variant per UTC day
func (r *StatementRepository) CountDistinctActorsByDay(ctx context.Context, f dashboard.Filter) ([]dashboard.DayCount, error) {
	pipeline, err := distinctActorsByDayPipeline(f)
	if err != nil {
		return nil, err
	}
	return r.dayCounts(ctx, "count distinct actors by day", pipeline)
}

// Scan streams statements matching the store and timestamp bounds of f.
func (r *StatementRepository) Scan(ctx context.Context, f dashboard.Filter, fn func(models.Statement) error) error {
	cursor, err := r.collection.Find(ctx, statementMatch(f.WithKind(0)), options.Find().SetBatchSize(1000))
	if err != nil {
		return mongoError("scan statements", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			ID        primitive.ObjectID   `bson:"_id"`
			StoreID   bson.RawValue        `bson:"lrs_id"`
			Timestamp time.Time            `bson:"timestamp"`
			Statement models.StatementBody `bson:"statement"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("decode statement: %w", err)
		}

		st := models.Statement{ID: doc.ID, Timestamp: doc.Timestamp.UTC(), Statement: doc.Statement}
		if oid, ok := doc.StoreID.ObjectIDOK(); ok {
			st.StoreID = oid.Hex()
		} else if id, ok := doc.StoreID.StringValueOK(); ok {
			st.StoreID = id
		}

		if err := fn(st); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return mongoError("scan statements", err)
	}
	return nil
}

func (r *StatementRepository) dayCounts(ctx context.Context, op string, pipeline []bson.M) ([]dashboard.DayCount, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongoError(op, err)
	}
	defer cursor.Close(ctx)

	var rows []dayCountRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, mongoError(op, err)
	}

	return toDayCounts(rows)
}

// dayCountRow is one output document of a per-day pipeline.
type dayCountRow struct {
	Day   string `bson:"_id"` // YYYY-MM-DD
	Count int64  `bson:"count"`
}

func toDayCounts(rows []dayCountRow) ([]dashboard.DayCount, error) {
	counts := make([]dashboard.DayCount, 0, len(rows))
	for _, row := range rows {
		day, err := time.Parse(models.DayFormat, row.Day)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", row.Day, err)
		}
		counts = append(counts, dashboard.DayCount{Day: day, Count: row.Count})
	}
	return counts, nil
}

// statementMatch builds the $match document for a filter.
func statementMatch(f dashboard.Filter) bson.M {
	match := bson.M{}
	if f.StoreID != "" {
		match[fieldStoreID] = storeIDValue(f.StoreID)
	}

	ts := bson.M{}
	if !f.Since.IsZero() {
		ts["$gte"] = f.Since
	}
	if !f.Before.IsZero() {
		ts["$lt"] = f.Before
	}
	if len(ts) > 0 {
		match[fieldTimestamp] = ts
	}

	for field, cond := range identityMatch(f.Kind) {
		match[field] = cond
	}
	return match
}

// storeIDValue returns the stored form of an LRS id: an ObjectID when the
// id is one, the raw string otherwise.
func storeIDValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// identityMatch selects actors resolved by kind. Higher priority
// identifiers must be absent so that each actor falls in one variant only.
func identityMatch(kind dashboard.IdentityKind) bson.M {
	present := func() bson.M { return bson.M{"$nin": bson.A{nil, ""}} }
	absent := func() bson.M { return bson.M{"$in": bson.A{nil, ""}} }

	switch kind {
	case dashboard.KindMbox:
		return bson.M{fieldMbox: present()}
	case dashboard.KindOpenID:
		return bson.M{fieldMbox: absent(), fieldOpenID: present()}
	case dashboard.KindMboxSha1Sum:
		return bson.M{fieldMbox: absent(), fieldOpenID: absent(), fieldMboxSha1Sum: present()}
	case dashboard.KindAccount:
		return bson.M{
			fieldMbox:            absent(),
			fieldOpenID:          absent(),
			fieldMboxSha1Sum:     absent(),
			fieldAccountName:     present(),
			fieldAccountHomePage: present(),
		}
	}
	return nil
}

// dedupKey is the $group key of an identity variant.
func dedupKey(kind dashboard.IdentityKind) (interface{}, error) {
	switch kind {
	case dashboard.KindMbox:
		return "$" + fieldMbox, nil
	case dashboard.KindOpenID:
		return "$" + fieldOpenID, nil
	case dashboard.KindMboxSha1Sum:
		return "$" + fieldMboxSha1Sum, nil
	case dashboard.KindAccount:
		return bson.M{
			"accountName":     "$" + fieldAccountName,
			"accountHomePage": "$" + fieldAccountHomePage,
		}, nil
	}
	return nil, fmt.Errorf("identity kind %d: %w", kind, dashboard.ErrUnresolvableIdentity)
}

var dayOfTimestamp = bson.M{
	"$dateToString": bson.M{
		"format":   "%Y-%m-%d",
		"date":     "$" + fieldTimestamp,
		"timezone": "UTC",
	},
}

func countByDayPipeline(f dashboard.Filter) []bson.M {
	return []bson.M{
		{"$match": statementMatch(f)},
		{"$group": bson.M{
			"_id":   dayOfTimestamp,
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}
}

func distinctActorsPipeline(f dashboard.Filter) ([]bson.M, error) {
	key, err := dedupKey(f.Kind)
	if err != nil {
		return nil, err
	}
	return []bson.M{
		{"$match": statementMatch(f)},
		{"$group": bson.M{"_id": key}},
		{"$group": bson.M{
			"_id":   1,
			"count": bson.M{"$sum": 1},
		}},
	}, nil
}

func distinctActorsByDayPipeline(f dashboard.Filter) ([]bson.M, error) {
	key, err := dedupKey(f.Kind)
	if err != nil {
		return nil, err
	}
	return []bson.M{
		{"$match": statementMatch(f)},
		{"$group": bson.M{"_id": bson.M{
			"day":   dayOfTimestamp,
			"actor": key,
		}}},
		{"$group": bson.M{
			"_id":   "$_id.day",
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}, nil
}

// mongoError tags driver failures with the dashboard error kinds.
func mongoError(op string, err error) error {
	var selection topology.ServerSelectionError
	switch {
	case mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %w", op, context.DeadlineExceeded, err)
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected), errors.As(err, &selection):
		return fmt.Errorf("%s: %w: %w", op, dashboard.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
