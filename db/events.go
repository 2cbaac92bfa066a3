package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextEventID returns the next available event ID.
func (ms *MongoStorage) nextEventID(ctx context.Context) (uint64, error) {
	var event Event
	opts := options.FindOne().SetSort(bson.M{"_id": -1}).SetProjection(bson.M{"_id": 1})
	if err := ms.events.FindOne(ctx, bson.M{}, opts).Decode(&event); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return event.ID + 1, nil
}

// SetEvent creates a new event or updates an existing one. New events get
// their remaining tickets initialized to the total.
func (ms *MongoStorage) SetEvent(event *Event) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if event.ID == 0 {
		if event.Name == "" {
			return 0, ErrInvalidData
		}
		nextID, err := ms.nextEventID(ctx)
		if err != nil {
			return 0, err
		}
		event.ID = nextID
		event.RemainingTickets = event.TotalTickets
		if _, err := ms.events.InsertOne(ctx, event); err != nil {
			return 0, err
		}
		return event.ID, nil
	}
	updateDoc, err := dynamicUpdateDocument(event, nil)
	if err != nil {
		return 0, err
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.events.UpdateOne(ctx, bson.M{"_id": event.ID}, updateDoc, opts); err != nil {
		return 0, err
	}
	return event.ID, nil
}

// Event returns the event with the given ID.
func (ms *MongoStorage) Event(eventID uint64) (*Event, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	event := &Event{}
	if err := ms.events.FindOne(ctx, bson.M{"_id": eventID}).Decode(event); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// Events returns all the events ordered by start date.
func (ms *MongoStorage) Events() ([]*Event, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"startDate": 1})
	cursor, err := ms.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()
	events := []*Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ClaimEventTicket atomically decrements the remaining tickets of the event.
// The filter guards against overselling, if no document matches the event is
// either missing or sold out and the updated event is not returned.
func (ms *MongoStorage) ClaimEventTicket(eventID uint64) (*Event, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": eventID, "remainingTickets": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"remainingTickets": -1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	event := &Event{}
	if err := ms.events.FindOneAndUpdate(ctx, filter, update, opts).Decode(event); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSoldOut
		}
		return nil, err
	}
	return event, nil
}

// DelEvent removes the event with the given ID.
func (ms *MongoStorage) DelEvent(event *Event) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := ms.events.DeleteOne(ctx, bson.M{"_id": event.ID})
	return err
}
