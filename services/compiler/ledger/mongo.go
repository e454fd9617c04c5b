// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"
)

// DocumentStore is the ledger's persistence collaborator: a generic
// document store with replace-upsert semantics. Implementations must treat
// version_id as the document key.
type DocumentStore interface {
	// LoadAll returns every stored version, used to hydrate the ledger at
	// construction.
	LoadAll(ctx context.Context) ([]datatypes.GoalVersion, error)

	// Save inserts or replaces one version by version_id.
	Save(ctx context.Context, version *datatypes.GoalVersion) error

	// FindOne returns a stored version, or nil when absent.
	FindOne(ctx context.Context, versionID string) (*datatypes.GoalVersion, error)
}

// Compile-time interface implementation check.
var _ DocumentStore = (*MongoStore)(nil)

// MongoStore persists goal versions in a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps an existing collection. The caller owns client
// lifecycle; the store never disconnects it.
func NewMongoStore(collection *mongo.Collection) (*MongoStore, error) {
	if collection == nil {
		return nil, errors.New("collection must not be nil")
	}
	return &MongoStore{collection: collection}, nil
}

// Connect dials MongoDB and returns a store over database/collection.
func Connect(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo URI must not be empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStore(client.Database(database).Collection(collection))
}

// LoadAll implements DocumentStore.
func (s *MongoStore) LoadAll(ctx context.Context) ([]datatypes.GoalVersion, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find goal versions: %w", err)
	}
	defer cursor.Close(ctx)

	var versions []datatypes.GoalVersion
	if err := cursor.All(ctx, &versions); err != nil {
		return nil, fmt.Errorf("decode goal versions: %w", err)
	}
	return versions, nil
}

// Save implements DocumentStore with replace-upsert semantics keyed on
// version_id.
func (s *MongoStore) Save(ctx context.Context, version *datatypes.GoalVersion) error {
	if version == nil {
		return errors.New("version must not be nil")
	}
	filter := bson.D{{Key: "version_id", Value: version.VersionID}}
	_, err := s.collection.ReplaceOne(ctx, filter, version, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace goal version %q: %w", version.VersionID, err)
	}
	return nil
}

// FindOne implements DocumentStore. An absent document returns (nil, nil).
func (s *MongoStore) FindOne(ctx context.Context, versionID string) (*datatypes.GoalVersion, error) {
	var version datatypes.GoalVersion
	err := s.collection.FindOne(ctx, bson.D{{Key: "version_id", Value: versionID}}).Decode(&version)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find goal version %q: %w", versionID, err)
	}
	return &version, nil
}
