package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextPaymentRecordID returns the next available payment record ID.
func (ms *MongoStorage) nextPaymentRecordID(ctx context.Context) (uint64, error) {
	var record PaymentRecord
	opts := options.FindOne().SetSort(bson.M{"_id": -1}).SetProjection(bson.M{"_id": 1})
	if err := ms.payments.FindOne(ctx, bson.M{}, opts).Decode(&record); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return record.ID + 1, nil
}

// SetPaymentRecord appends a new payment record. Records are insert-only, an
// existing record is never updated, newer purchases simply supersede older
// ones when queried by creation time.
func (ms *MongoStorage) SetPaymentRecord(record *PaymentRecord) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if record.UserID == 0 || record.TransactionID == "" || !IsValidPaymentMethod(record.PaymentMethod) {
		return 0, ErrInvalidData
	}
	nextID, err := ms.nextPaymentRecordID(ctx)
	if err != nil {
		return 0, err
	}
	record.ID = nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if _, err := ms.payments.InsertOne(ctx, record); err != nil {
		return 0, err
	}
	return record.ID, nil
}

// LastPaymentRecord returns the most recent payment record of the user across
// all payment methods. If the user has no records, ErrNotFound is returned.
func (ms *MongoStorage) LastPaymentRecord(userID uint64) (*PaymentRecord, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	record := &PaymentRecord{}
	if err := ms.payments.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(record); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// LastPaymentRecordByMethod returns the most recent payment record of the user
// for the given payment method.
func (ms *MongoStorage) LastPaymentRecordByMethod(userID uint64, method PaymentMethod) (*PaymentRecord, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	record := &PaymentRecord{}
	filter := bson.M{"userId": userID, "paymentMethod": method}
	if err := ms.payments.FindOne(ctx, filter, opts).Decode(record); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// PaymentRecordsByUser returns every payment record of the user, newest first.
func (ms *MongoStorage) PaymentRecordsByUser(userID uint64) ([]*PaymentRecord, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := ms.payments.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()
	records := []*PaymentRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
