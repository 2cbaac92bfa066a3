package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Object returns the stored binary object with the given ID.
func (ms *MongoStorage) Object(id string) (*Object, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	object := &Object{}
	if err := ms.objects.FindOne(ctx, bson.M{"_id": id}).Decode(object); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return object, nil
}

// SetObject stores a binary object with the given ID, replacing any previous
// object under the same ID.
func (ms *MongoStorage) SetObject(id, userEmail, contentType string, data []byte) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	object := &Object{
		ID:          id,
		Data:        data,
		UserEmail:   userEmail,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.objects.ReplaceOne(ctx, bson.M{"_id": id}, object, opts)
	return err
}

// RemoveObject deletes the stored object with the given ID.
func (ms *MongoStorage) RemoveObject(id string) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := ms.objects.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
