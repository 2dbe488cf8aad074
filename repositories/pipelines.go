package repositories

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// reviewsLookup joins every review whose store field equals the store id.
func reviewsLookup(from string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "store"},
		{Key: "as", Value: "reviews"},
	}}}
}

func tagsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func topStoresPipeline(reviews string, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		reviewsLookup(reviews),
		// two or more reviews
		{{Key: "$match", Value: bson.D{{Key: "reviews.1", Value: bson.D{{Key: "$exists", Value: true}}}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "photo", Value: "$$ROOT.photo"},
			{Key: "name", Value: "$$ROOT.name"},
			{Key: "slug", Value: "$$ROOT.slug"},
			{Key: "reviews", Value: "$$ROOT.reviews"},
			{Key: "averageRating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "averageRating", Value: -1}, {Key: "name", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

// slugFilter matches base and base-<digits>, case-insensitively.
func slugFilter(base string, exclude primitive.ObjectID) bson.M {
	filter := bson.M{"slug": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(base) + "(-[0-9]*)?$",
		Options: "i",
	}}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return filter
}

func nearFilter(lng, lat, maxDistance float64) bson.M {
	return bson.M{"location": bson.M{"$near": bson.M{
		"$geometry": bson.M{
			"type":        "Point",
			"coordinates": []float64{lng, lat},
		},
		"$maxDistance": maxDistance,
	}}}
}

// tagFilter matches stores carrying tag, or any tag at all when tag is empty.
func tagFilter(tag string) bson.M {
	if tag == "" {
		return bson.M{"tags": bson.M{"$exists": true, "$ne": bson.A{}}}
	}
	return bson.M{"tags": tag}
}
