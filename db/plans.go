package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextPlanID returns the next available plan ID, which is the last plan ID + 1.
func (ms *MongoStorage) nextPlanID(ctx context.Context) (uint64, error) {
	var plan Plan
	opts := options.FindOne().SetSort(bson.M{"_id": -1}).SetProjection(bson.M{"_id": 1})
	if err := ms.plans.FindOne(ctx, bson.M{}, opts).Decode(&plan); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return plan.ID + 1, nil
}

// SetPlan creates a new plan or updates an existing one. It returns the plan
// ID on success.
func (ms *MongoStorage) SetPlan(plan *Plan) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if plan.ID == 0 {
		nextID, err := ms.nextPlanID(ctx)
		if err != nil {
			return 0, err
		}
		plan.ID = nextID
		if _, err := ms.plans.InsertOne(ctx, plan); err != nil {
			return 0, err
		}
		return plan.ID, nil
	}
	updateDoc, err := dynamicUpdateDocument(plan, []string{"default"})
	if err != nil {
		return 0, errors.Join(ErrPrepareDocument, err)
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.plans.UpdateOne(ctx, bson.M{"_id": plan.ID}, updateDoc, opts); err != nil {
		return 0, err
	}
	return plan.ID, nil
}

// Plan returns the plan with the given ID. If the plan doesn't exist, it
// returns ErrNotFound.
func (ms *MongoStorage) Plan(planID uint64) (*Plan, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	plan := &Plan{}
	if err := ms.plans.FindOne(ctx, bson.M{"_id": planID}).Decode(plan); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

// DefaultPlan returns the plan marked as default, used for new accounts.
func (ms *MongoStorage) DefaultPlan() (*Plan, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	plan := &Plan{}
	if err := ms.plans.FindOne(ctx, bson.M{"default": true}).Decode(plan); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

// Plans returns all the subscription plans ordered by ID.
func (ms *MongoStorage) Plans() ([]*Plan, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := ms.plans.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()
	plans := []*Plan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// DelPlan removes the plan with the given ID.
func (ms *MongoStorage) DelPlan(plan *Plan) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := ms.plans.DeleteOne(ctx, bson.M{"_id": plan.ID})
	return err
}
