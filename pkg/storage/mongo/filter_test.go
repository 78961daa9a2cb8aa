package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hookbox/hookbox/pkg/storage"
)

func TestEmailFilterEmpty(t *testing.T) {
	assert.Empty(t, emailFilter(storage.EmailQuery{}))
}

func TestEmailFilterRecipients(t *testing.T) {
	filter := emailFilter(storage.EmailQuery{
		Recipients: []string{"sam@example.com", "sales@example.com"},
	})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t,
		bson.M{"to.email": bson.M{"$in": []string{"sam@example.com", "sales@example.com"}}},
		or[0])
	assert.Equal(t,
		bson.M{"envelope.recipient": bson.M{"$in": []string{"sam@example.com", "sales@example.com"}}},
		or[1])
}

func TestEmailFilterUnread(t *testing.T) {
	filter := emailFilter(storage.EmailQuery{UnreadOnly: true})
	assert.Equal(t, false, filter["processed"])
}

func TestEmailFilterFromAndSubject(t *testing.T) {
	filter := emailFilter(storage.EmailQuery{
		FromEmail: "billing@example.com",
		Subject:   "invoice",
	})
	assert.Equal(t, "billing@example.com", filter["from.email"])
	assert.Equal(t, bson.M{"$regex": "invoice", "$options": "i"}, filter["subject"])
}

func TestEmailFilterSearchPreservesRecipientOr(t *testing.T) {
	filter := emailFilter(storage.EmailQuery{
		Recipients: []string{"sam@example.com"},
		Search:     "invoice",
	})

	// The recipient restriction and the search restriction must both be
	// present; the search lives under its own $and.
	_, hasOr := filter["$or"]
	assert.True(t, hasOr)
	and, ok := filter["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 1)
	searchOr, ok := and[0].(bson.M)["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, searchOr, 5)
}

func TestEmailFilterSearchEscapesRegex(t *testing.T) {
	filter := emailFilter(storage.EmailQuery{Subject: "1+1 (really?)"})
	assert.Equal(t,
		bson.M{"$regex": `1\+1 \(really\?\)`, "$options": "i"},
		filter["subject"])
}

func TestOwnedFilter(t *testing.T) {
	uid := primitive.NewObjectID()
	filter := ownedFilter(storage.OwnedQuery{UserID: uid})
	assert.Equal(t, bson.M{"user_id": uid}, filter)
}

func TestOwnedFilterSearch(t *testing.T) {
	uid := primitive.NewObjectID()
	filter := ownedFilter(storage.OwnedQuery{UserID: uid, Search: "plans"})
	assert.Equal(t, uid, filter["user_id"])
	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)
}
