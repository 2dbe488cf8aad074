package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"store-finder/utils/errors"
)

// PointType is the only GeoJSON geometry a store location may have.
const PointType = "Point"

type Store struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	Slug        string             `json:"slug" bson:"slug"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Tags        []string           `json:"tags" bson:"tags"`
	Created     time.Time          `json:"created" bson:"created"`
	Location    GeoPoint           `json:"location" bson:"location"`
	Photo       string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Author      primitive.ObjectID `json:"author" bson:"author" validate:"required"`

	// Reviews is filled by a $lookup at read time and never written back.
	Reviews []Review `json:"reviews,omitempty" bson:"reviews,omitempty"`
}

// GeoPoint is a GeoJSON point. Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address" bson:"address" validate:"required"`
}

func NewPoint(lng, lat float64, address string) GeoPoint {
	return GeoPoint{Type: PointType, Coordinates: []float64{lng, lat}, Address: address}
}

// StoreFields is a partial set of store fields. Nil means "not provided".
type StoreFields struct {
	Name        *string
	Description *string
	Tags        []string
	Location    *GeoPoint
	Photo       *string
	Author      *primitive.ObjectID

	// Invalid holds input that could not be parsed. It is reported together
	// with the validation of the other fields.
	Invalid []errors.FieldError
}

// NearbyStore is the projection returned by geospatial lookups.
type NearbyStore struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Photo       string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Location    GeoPoint           `json:"location" bson:"location"`
}

type TagCount struct {
	Tag   string `json:"tag" bson:"_id"`
	Count int    `json:"count" bson:"count"`
}

type TopStore struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	Name          string             `json:"name" bson:"name"`
	Slug          string             `json:"slug" bson:"slug"`
	Photo         string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Reviews       []Review           `json:"reviews" bson:"reviews"`
	AverageRating float64            `json:"averageRating" bson:"averageRating"`
}

var StoreIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetName("uniq_slug").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
		Options: options.Index().SetName("text_name_description"),
	},
	{
		Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
		Options: options.Index().SetName("geo_location"),
	},
	{
		Keys:    bson.D{{Key: "author", Value: 1}},
		Options: options.Index().SetName("idx_author"),
	},
}
