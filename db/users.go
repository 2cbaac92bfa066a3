package db

import (
	"context"
	"errors"
	"strings"

	"github.com/tappio/backend/internal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextUserID returns the next available user ID, which is the last user ID + 1.
func (ms *MongoStorage) nextUserID(ctx context.Context) (uint64, error) {
	var user User
	opts := options.FindOne().SetSort(bson.M{"_id": -1}).SetProjection(bson.M{"_id": 1})
	if err := ms.users.FindOne(ctx, bson.M{}, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, errors.Join(ErrGetUser, err)
	}
	return user.ID + 1, nil
}

// User returns the user with the given ID. If the user doesn't exist, it
// returns ErrNotFound.
func (ms *MongoStorage) User(userID uint64) (*User, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.users.FindOne(ctx, bson.M{"_id": userID})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrGetUser, err)
	}
	return user, nil
}

// UserByEmail returns the user with the given email. If the user doesn't
// exist, it returns ErrNotFound.
func (ms *MongoStorage) UserByEmail(email string) (*User, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.users.FindOne(ctx, bson.M{"email": email})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrGetUser, err)
	}
	return user, nil
}

// SetUser creates a new user or updates an existing one. If the user provided
// has no ID, it is considered a new user and the email is validated, if the
// insert fails because the email is already registered it returns
// ErrAlreadyExists.
func (ms *MongoStorage) SetUser(user *User) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// if the user provided doesn't have an ID, it is a new user, so the email
	// is required to be valid and the next available ID is assigned to it
	if user.ID == 0 {
		if !internal.ValidEmail(user.Email) {
			return 0, ErrInvalidData
		}
		nextID, err := ms.nextUserID(ctx)
		if err != nil {
			return 0, err
		}
		user.ID = nextID
		if _, err := ms.users.InsertOne(ctx, user); err != nil {
			if strings.Contains(err.Error(), "duplicate key error") {
				return 0, ErrAlreadyExists
			}
			return 0, errors.Join(ErrStoreUser, err)
		}
		return user.ID, nil
	}
	// if the user provided has an ID, update the document with the non zero
	// fields of the struct
	updateDoc, err := dynamicUpdateDocument(user, nil)
	if err != nil {
		return 0, errors.Join(ErrPrepareDocument, err)
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": user.ID}, updateDoc, opts); err != nil {
		return 0, errors.Join(ErrStoreUser, err)
	}
	return user.ID, nil
}

// DelUser removes the user and its pending verification codes.
func (ms *MongoStorage) DelUser(user *User) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err := ms.users.DeleteOne(ctx, bson.M{"_id": user.ID}); err != nil {
		return errors.Join(ErrDelUser, err)
	}
	if _, err := ms.verifications.DeleteMany(ctx, bson.M{"_id": user.ID}); err != nil {
		return errors.Join(ErrDelUser, err)
	}
	return nil
}

// VerifyUserAccount marks the user account as verified and removes the used
// verification code in the same operation.
func (ms *MongoStorage) VerifyUserAccount(user *User) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	updateDoc := bson.M{"$set": bson.M{"verified": true}}
	if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": user.ID}, updateDoc); err != nil {
		return errors.Join(ErrStoreUser, err)
	}
	return ms.delVerificationCode(ctx, user.ID, CodeTypeVerifyAccount)
}
