package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Review struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Created time.Time          `json:"created" bson:"created"`
	Author  primitive.ObjectID `json:"author" bson:"author" validate:"required"`
	Store   primitive.ObjectID `json:"store" bson:"store" validate:"required"`
	Text    string             `json:"text" bson:"text" validate:"required"`
	Rating  int                `json:"rating" bson:"rating" validate:"min=1,max=5"`
}

var ReviewIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "store", Value: 1}, {Key: "created", Value: -1}},
		Options: options.Index().SetName("idx_store_created"),
	},
}
