package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/hookbox/hookbox/pkg/storage"
)

// substringRegex builds a case-insensitive substring matcher for user input.
func substringRegex(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

// emailFilter translates an EmailQuery into a MongoDB filter document.
func emailFilter(q storage.EmailQuery) bson.M {
	filter := bson.M{}
	if len(q.Recipients) > 0 {
		filter["$or"] = bson.A{
			bson.M{"to.email": bson.M{"$in": q.Recipients}},
			bson.M{"envelope.recipient": bson.M{"$in": q.Recipients}},
		}
	}
	if q.UnreadOnly {
		filter["processed"] = false
	}
	if q.FromEmail != "" {
		filter["from.email"] = q.FromEmail
	}
	if q.Subject != "" {
		filter["subject"] = substringRegex(q.Subject)
	}
	if q.Search != "" {
		// Nested under $and so the search $or does not clobber the
		// recipient $or above.
		filter["$and"] = bson.A{
			bson.M{"$or": bson.A{
				bson.M{"subject": substringRegex(q.Search)},
				bson.M{"from.name": substringRegex(q.Search)},
				bson.M{"from.email": substringRegex(q.Search)},
				bson.M{"text": substringRegex(q.Search)},
				bson.M{"to.email": substringRegex(q.Search)},
			}},
		}
	}
	return filter
}

// ownedFilter translates an OwnedQuery into a MongoDB filter document.
func ownedFilter(q storage.OwnedQuery) bson.M {
	filter := bson.M{"user_id": q.UserID}
	if q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"subject": substringRegex(q.Search)},
			bson.M{"to": substringRegex(q.Search)},
			bson.M{"html": substringRegex(q.Search)},
		}
	}
	return filter
}
