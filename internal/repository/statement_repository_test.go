package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lrs-tracker/internal/dashboard"
)

func TestStatementMatch_Global(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bson.M{}, statementMatch(dashboard.Global().Filter()))
}

func TestStatementMatch_StoreID(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	match := statementMatch(dashboard.ForStore(oid.Hex()).Filter())
	assert.Equal(t, oid, match["lrs_id"])

	match = statementMatch(dashboard.ForStore("legacy-store").Filter())
	assert.Equal(t, "legacy-store", match["lrs_id"])
}

func TestStatementMatch_Range(t *testing.T) {
	t.Parallel()

	rng := dashboard.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	match := statementMatch(rng.Apply(dashboard.Global().Filter()))

	assert.Equal(t, bson.M{
		"$gte": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"$lt":  time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}, match["timestamp"])
}

func TestStatementMatch_IdentityPriority(t *testing.T) {
	t.Parallel()

	present := bson.M{"$nin": bson.A{nil, ""}}
	absent := bson.M{"$in": bson.A{nil, ""}}

	mboxMatch := statementMatch(dashboard.Global().Filter().WithKind(dashboard.KindMbox))
	assert.Equal(t, bson.M{"statement.actor.mbox": present}, mboxMatch)

	openidMatch := statementMatch(dashboard.Global().Filter().WithKind(dashboard.KindOpenID))
	assert.Equal(t, bson.M{
		"statement.actor.mbox":   absent,
		"statement.actor.openid": present,
	}, openidMatch)

	accountMatch := statementMatch(dashboard.ForStore("s1").Filter().WithKind(dashboard.KindAccount))
	assert.Equal(t, bson.M{
		"lrs_id":                          "s1",
		"statement.actor.mbox":            absent,
		"statement.actor.openid":          absent,
		"statement.actor.mbox_sha1sum":    absent,
		"statement.actor.account.name":    present,
		"statement.actor.account.homePage": present,
	}, accountMatch)
}

func TestCountByDayPipeline(t *testing.T) {
	t.Parallel()

	pipeline := countByDayPipeline(dashboard.ForStore("s1").Filter())
	require.Len(t, pipeline, 3)

	assert.Equal(t, bson.M{"lrs_id": "s1"}, pipeline[0]["$match"])
	assert.Equal(t, bson.M{"_id": dayOfTimestamp, "count": bson.M{"$sum": 1}}, pipeline[1]["$group"])
	assert.Equal(t, bson.M{"_id": 1}, pipeline[2]["$sort"])
}

func TestDistinctActorsByDayPipeline(t *testing.T) {
	t.Parallel()

	pipeline, err := distinctActorsByDayPipeline(dashboard.Global().Filter().WithKind(dashboard.KindAccount))
	require.NoError(t, err)
	require.Len(t, pipeline, 4)

	assert.Equal(t, bson.M{"_id": bson.M{
		"day": dayOfTimestamp,
		"actor": bson.M{
			"accountName":     "$statement.actor.account.name",
			"accountHomePage": "$statement.actor.account.homePage",
		},
	}}, pipeline[1]["$group"])
	assert.Equal(t, bson.M{"_id": "$_id.day", "count": bson.M{"$sum": 1}}, pipeline[2]["$group"])
}

func TestDistinctActorsPipeline(t *testing.T) {
	t.Parallel()

	pipeline, err := distinctActorsPipeline(dashboard.Global().Filter().WithKind(dashboard.KindMboxSha1Sum))
	require.NoError(t, err)
	require.Len(t, pipeline, 3)
	assert.Equal(t, bson.M{"_id": "$statement.actor.mbox_sha1sum"}, pipeline[1]["$group"])

	_, err = distinctActorsPipeline(dashboard.Global().Filter())
	assert.ErrorIs(t, err, dashboard.ErrUnresolvableIdentity)
}

func TestToDayCounts(t *testing.T) {
	t.Parallel()

	counts, err := toDayCounts([]dayCountRow{{Day: "2024-01-01", Count: 2}, {Day: "2024-01-03", Count: 1}})
	require.NoError(t, err)
	assert.Equal(t, []dashboard.DayCount{
		{Day: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Count: 2},
		{Day: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Count: 1},
	}, counts)

	_, err = toDayCounts([]dayCountRow{{Day: "not-a-day"}})
	assert.Error(t, err)
}

func TestMongoError(t *testing.T) {
	t.Parallel()

	err := mongoError("count statements", mongo.ErrClientDisconnected)
	assert.ErrorIs(t, err, dashboard.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "count statements")

	err = mongoError("count statements", errors.New("bad pipeline"))
	assert.NotErrorIs(t, err, dashboard.ErrStoreUnavailable)
}
