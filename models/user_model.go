package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Email        string               `json:"email" bson:"email"`
	Name         string               `json:"name" bson:"name"`
	PasswordHash string               `json:"-" bson:"password_hash"`
	Hearts       []primitive.ObjectID `json:"hearts" bson:"hearts"`
	ResetToken   string               `json:"-" bson:"reset_token,omitempty"`
	ResetExpires *time.Time           `json:"-" bson:"reset_expires,omitempty"`
}

var UserIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_email").SetUnique(true),
	},
}
