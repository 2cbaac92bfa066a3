package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserByVerificationCode returns the user with the given verification code and
// type. The hashed code is looked up in the verifications collection and the
// matching user resolved from it. If no code matches, ErrNotFound is returned.
// It does not check the expiration of the code, the caller must do it.
func (ms *MongoStorage) UserByVerificationCode(code string, t CodeType) (*User, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.verifications.FindOne(ctx, bson.M{"code": code, "type": t})
	verification := &UserVerification{}
	if err := result.Decode(verification); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	result = ms.users.FindOne(ctx, bson.M{"_id": verification.ID})
	user := &User{}
	if err := result.Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UserVerificationCode returns the verification code of the given type for the
// user provided. If the user has no pending code, ErrNotFound is returned.
func (ms *MongoStorage) UserVerificationCode(user *User, t CodeType) (*UserVerification, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	result := ms.verifications.FindOne(ctx, bson.M{"_id": user.ID, "type": t})
	verification := &UserVerification{}
	if err := result.Decode(verification); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return verification, nil
}

// SetVerificationCode stores a verification code for the user, replacing any
// previous one of the same type.
func (ms *MongoStorage) SetVerificationCode(user *User, code string, t CodeType, exp time.Time) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": user.ID, "type": t}
	verification := &UserVerification{
		ID:         user.ID,
		Code:       code,
		Type:       t,
		Expiration: exp,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.verifications.ReplaceOne(ctx, filter, verification, opts)
	return err
}

// delVerificationCode removes the verification code of the given type for the
// user. Internal helper, callers hold the keysLock.
func (ms *MongoStorage) delVerificationCode(ctx context.Context, userID uint64, t CodeType) error {
	_, err := ms.verifications.DeleteOne(ctx, bson.M{"_id": userID, "type": t})
	return err
}
