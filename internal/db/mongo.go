package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetdesk/fleetops/internal/models"
)

// ConnectMongo connects to MongoDB at the given URI and verifies the
// connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore implements Store on MongoDB with one collection per
// entity. Cross-entity transitions run in a session transaction with
// the vehicle write filtered on the expected claim token, so the
// first committed claim wins even across processes.
type MongoStore struct {
	client      *mongo.Client
	drivers     *mongo.Collection
	vehicles    *mongo.Collection
	missions    *mongo.Collection
	maintenance *mongo.Collection
}

// NewMongoStore wires the store to the named database and creates the
// unique indexes for badge, plate, and chassis numbers.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	database := client.Database(dbName)
	s := &MongoStore{
		client:      client,
		drivers:     database.Collection("drivers"),
		vehicles:    database.Collection("vehicles"),
		missions:    database.Collection("missions"),
		maintenance: database.Collection("maintenance"),
	}
	unique := options.Index().SetUnique(true)
	if _, err := s.drivers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "badge_number", Value: 1}}, Options: unique,
	}); err != nil {
		return nil, fmt.Errorf("create badge index: %w", err)
	}
	if _, err := s.vehicles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "plate_number", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "chassis_number", Value: 1}}, Options: unique},
	}); err != nil {
		return nil, fmt.Errorf("create vehicle indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) insert(ctx context.Context, coll *mongo.Collection, doc any) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// A zero CreatedAt is omitted from the $set (bson omitempty on the
// models), so updates never clear the creation timestamp.
func (s *MongoStore) update(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateDriver(ctx context.Context, d *models.Driver) (string, error) {
	rec := *d
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if err := s.insert(ctx, s.drivers, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *MongoStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	var d models.Driver
	if err := s.drivers.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *MongoStore) UpdateDriver(ctx context.Context, id string, d *models.Driver) error {
	rec := *d
	rec.ID = id
	rec.UpdatedAt = time.Now()
	return s.update(ctx, s.drivers, id, rec)
}

func (s *MongoStore) ListDrivers(ctx context.Context, f DriverFilter) ([]models.Driver, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cursor, err := s.drivers.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []models.Driver{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateVehicle(ctx context.Context, v *models.Vehicle) (string, error) {
	rec := *v
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if err := s.insert(ctx, s.vehicles, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *MongoStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := s.vehicles.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *MongoStore) UpdateVehicle(ctx context.Context, id string, v *models.Vehicle) error {
	rec := *v
	rec.ID = id
	rec.UpdatedAt = time.Now()
	return s.update(ctx, s.vehicles, id, rec)
}

func (s *MongoStore) ListVehicles(ctx context.Context, f VehicleFilter) ([]models.Vehicle, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cursor, err := s.vehicles.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []models.Vehicle{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateMission(ctx context.Context, m *models.Mission) (string, error) {
	rec := *m
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if err := s.insert(ctx, s.missions, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *MongoStore) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	var m models.Mission
	if err := s.missions.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) UpdateMission(ctx context.Context, id string, m *models.Mission) error {
	rec := *m
	rec.ID = id
	rec.UpdatedAt = time.Now()
	return s.update(ctx, s.missions, id, rec)
}

func (s *MongoStore) ListMissions(ctx context.Context, f MissionFilter) ([]models.Mission, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.VehicleID != "" {
		filter["vehicle_id"] = f.VehicleID
	}
	if rng := timeRange(f.From, f.To); rng != nil {
		filter["start_time"] = rng
	}
	cursor, err := s.missions.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []models.Mission{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateMaintenance(ctx context.Context, m *models.Maintenance) (string, error) {
	rec := *m
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if err := s.insert(ctx, s.maintenance, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *MongoStore) GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := s.maintenance.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) UpdateMaintenance(ctx context.Context, id string, m *models.Maintenance) error {
	rec := *m
	rec.ID = id
	rec.UpdatedAt = time.Now()
	return s.update(ctx, s.maintenance, id, rec)
}

func (s *MongoStore) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]models.Maintenance, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.VehicleID != "" {
		filter["vehicle_id"] = f.VehicleID
	}
	if rng := timeRange(f.From, f.To); rng != nil {
		filter["scheduled_date"] = rng
	}
	cursor, err := s.maintenance.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := []models.Maintenance{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func timeRange(from, to time.Time) bson.M {
	rng := bson.M{}
	if !from.IsZero() {
		rng["$gte"] = from
	}
	if !to.IsZero() {
		rng["$lte"] = to
	}
	if len(rng) == 0 {
		return nil
	}
	return rng
}

// ApplyTransition runs the record and vehicle writes in one session
// transaction. The vehicle update is filtered on the expected claim
// token; a concurrent claimant makes the filter miss and the whole
// transaction aborts with ErrClaimChanged.
func (s *MongoStore) ApplyTransition(ctx context.Context, t Transition) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		now := time.Now()
		switch {
		case t.Mission != nil:
			rec := *t.Mission
			rec.UpdatedAt = now
			res, err := s.missions.UpdateOne(sc, bson.M{"_id": rec.ID}, bson.M{"$set": rec})
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, ErrNotFound
			}
		case t.Maintenance != nil:
			rec := *t.Maintenance
			rec.UpdatedAt = now
			res, err := s.maintenance.UpdateOne(sc, bson.M{"_id": rec.ID}, bson.M{"$set": rec})
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, ErrNotFound
			}
		}

		veh := *t.Vehicle
		veh.UpdatedAt = now
		res, err := s.vehicles.UpdateOne(sc, bson.M{
			"_id":        veh.ID,
			"claimed_by": t.ExpectedClaim,
		}, bson.M{"$set": veh})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrClaimChanged
		}
		return nil, nil
	})
	return err
}
