package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextBookingID returns the next available booking ID.
func (ms *MongoStorage) nextBookingID(ctx context.Context) (uint64, error) {
	var booking Booking
	opts := options.FindOne().SetSort(bson.M{"_id": -1}).SetProjection(bson.M{"_id": 1})
	if err := ms.bookings.FindOne(ctx, bson.M{}, opts).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return booking.ID + 1, nil
}

// SetBooking stores a new ticket booking for a user and event.
func (ms *MongoStorage) SetBooking(booking *Booking) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if booking.UserID == 0 || booking.EventID == 0 || booking.TicketCode == "" {
		return 0, ErrInvalidData
	}
	nextID, err := ms.nextBookingID(ctx)
	if err != nil {
		return 0, err
	}
	booking.ID = nextID
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	if _, err := ms.bookings.InsertOne(ctx, booking); err != nil {
		return 0, err
	}
	return booking.ID, nil
}

// Booking returns the booking with the given ID.
func (ms *MongoStorage) Booking(bookingID uint64) (*Booking, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	booking := &Booking{}
	if err := ms.bookings.FindOne(ctx, bson.M{"_id": bookingID}).Decode(booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// BookingsByUser returns the bookings of the user, newest first.
func (ms *MongoStorage) BookingsByUser(userID uint64) ([]*Booking, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := ms.bookings.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()
	bookings := []*Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}
