package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"annotator/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore mirrors the annotation tables as MongoDB collections.
// Inserts carry the request id, so a replayed add is recognised and skipped.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoPoint struct {
	ImageID    int    `bson:"image_id"`
	X          int    `bson:"x"`
	Y          int    `bson:"y"`
	IsOriginal bool   `bson:"is_original"`
	IsDeleted  bool   `bson:"is_deleted"`
	RequestID  string `bson:"request_id,omitempty"`
}

type mongoRect struct {
	RectID     int    `bson:"rect_id"`
	ImageID    int    `bson:"image_id"`
	XInit      int    `bson:"x_init"`
	YInit      int    `bson:"y_init"`
	XEnd       int    `bson:"x_end"`
	YEnd       int    `bson:"y_end"`
	IsOriginal bool   `bson:"is_original"`
	IsDeleted  bool   `bson:"is_deleted"`
	RequestID  string `bson:"request_id,omitempty"`
}

func newMongoStore(conn *domain.RemoteConnection, password string) (*MongoStore, error) {
	uri := buildMongoURI(conn, password)
	dbName := conn.Database
	if dbName == "" {
		dbName = "egglytics"
	}

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s", logURI)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

// buildMongoURI accepts a full mongodb:// or mongodb+srv:// URI in Host, or
// builds one from host, port and username.
func buildMongoURI(conn *domain.RemoteConnection, password string) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := conn.Port
	if port == 0 {
		port = 27017
	}
	if conn.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
}

// Ping verifies connectivity.
func (m *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func netErr(op string, err error) error {
	return fmt.Errorf("%w: mongo %s: %v", domain.ErrNetworkFailure, op, err)
}

// seen reports whether a document with requestID already exists in coll.
func (m *MongoStore) seen(ctx context.Context, coll, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	n, err := m.db.Collection(coll).CountDocuments(ctx, bson.M{"request_id": requestID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *MongoStore) AddPoint(ctx context.Context, imageID int, p domain.Point, requestID string) error {
	dup, err := m.seen(ctx, "annotation_points", requestID)
	if err != nil {
		return netErr("add point", err)
	}
	if dup {
		log.Printf("[MONGO] point %s already stored, skipping replay", requestID)
		return nil
	}
	doc := mongoPoint{ImageID: imageID, X: p.X, Y: p.Y, RequestID: requestID}
	if _, err := m.db.Collection("annotation_points").InsertOne(ctx, doc); err != nil {
		return netErr("add point", err)
	}
	return m.adjustTotal(ctx, imageID, 1)
}

func (m *MongoStore) RemovePoint(ctx context.Context, imageID int, p domain.Point, _ string) error {
	coll := m.db.Collection("annotation_points")
	filter := bson.M{"image_id": imageID, "x": p.X, "y": p.Y, "is_deleted": false}
	var doc struct {
		ID         bson.ObjectID `bson:"_id"`
		IsOriginal bool          `bson:"is_original"`
	}
	err := coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: point (%d,%d): %w", domain.ErrNetworkFailure, p.X, p.Y, domain.ErrNotFound)
	}
	if err != nil {
		return netErr("find point", err)
	}
	if doc.IsOriginal {
		_, err = coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{"is_deleted": true}})
	} else {
		_, err = coll.DeleteOne(ctx, bson.M{"_id": doc.ID})
	}
	if err != nil {
		return netErr("remove point", err)
	}
	return m.adjustTotal(ctx, imageID, -1)
}

func (m *MongoStore) AddRect(ctx context.Context, imageID int, r domain.Rect, requestID string) (*int, error) {
	coll := m.db.Collection("annotation_rects")
	if requestID != "" {
		var existing mongoRect
		err := coll.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&existing)
		if err == nil {
			return &existing.RectID, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, netErr("add rect", err)
		}
	}

	id, err := m.nextID(ctx, "rect_id")
	if err != nil {
		return nil, netErr("allocate rect id", err)
	}
	x1, y1, x2, y2 := r.Corners()
	doc := mongoRect{RectID: id, ImageID: imageID, XInit: x1, YInit: y1, XEnd: x2, YEnd: y2, RequestID: requestID}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, netErr("add rect", err)
	}
	if err := m.adjustTotal(ctx, imageID, 1); err != nil {
		return nil, err
	}
	return &id, nil
}

func (m *MongoStore) RemoveRect(ctx context.Context, imageID int, r domain.Rect, _ string) error {
	coll := m.db.Collection("annotation_rects")
	filter := bson.M{"image_id": imageID, "is_deleted": false}
	if r.ID != nil {
		filter["rect_id"] = *r.ID
	} else {
		x1, y1, x2, y2 := r.Corners()
		filter["x_init"], filter["y_init"], filter["x_end"], filter["y_end"] = x1, y1, x2, y2
	}
	var doc mongoRect
	err := coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "rect_id", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: rect: %w", domain.ErrNetworkFailure, domain.ErrNotFound)
	}
	if err != nil {
		return netErr("find rect", err)
	}
	if doc.IsOriginal {
		_, err = coll.UpdateOne(ctx, bson.M{"rect_id": doc.RectID}, bson.M{"$set": bson.M{"is_deleted": true}})
	} else {
		_, err = coll.DeleteOne(ctx, bson.M{"rect_id": doc.RectID})
	}
	if err != nil {
		return netErr("remove rect", err)
	}
	return m.adjustTotal(ctx, imageID, -1)
}

func (m *MongoStore) ToggleGridCell(ctx context.Context, imageID int, cell domain.GridCell) error {
	coll := m.db.Collection("verified_grids")
	filter := bson.M{"image_id": imageID, "x": cell.Col, "y": cell.Row}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return netErr("toggle grid", err)
	}
	if res.DeletedCount > 0 {
		return nil
	}
	if _, err := coll.InsertOne(ctx, filter); err != nil {
		return netErr("toggle grid", err)
	}
	return nil
}

func (m *MongoStore) Recalibrate(ctx context.Context, req domain.CalibrationRequest) (string, error) {
	_, err := m.db.Collection("image_calibrations").UpdateOne(ctx,
		bson.M{"image_id": req.ImageID},
		bson.M{"$set": bson.M{"average_pixels": req.AveragePixels, "mode": req.Mode, "updated_at": time.Now()}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return "", netErr("recalibrate", err)
	}
	return fmt.Sprintf("/edit/%d/", req.ImageID), nil
}

// FetchAnnotations loads the live annotations for imageID.
func (m *MongoStore) FetchAnnotations(ctx context.Context, imageID int) (*domain.AnnotationSet, error) {
	set := &domain.AnnotationSet{ImageID: imageID}
	live := bson.M{"image_id": imageID, "is_deleted": false}

	cur, err := m.db.Collection("annotation_points").Find(ctx, live, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, netErr("load points", err)
	}
	var points []mongoPoint
	if err := cur.All(ctx, &points); err != nil {
		return nil, netErr("load points", err)
	}
	for _, p := range points {
		set.Points = append(set.Points, domain.Point{X: p.X, Y: p.Y})
	}

	cur, err = m.db.Collection("annotation_rects").Find(ctx, live, options.Find().SetSort(bson.D{{Key: "rect_id", Value: 1}}))
	if err != nil {
		return nil, netErr("load rects", err)
	}
	var rects []mongoRect
	if err := cur.All(ctx, &rects); err != nil {
		return nil, netErr("load rects", err)
	}
	for _, r := range rects {
		rect := domain.NormalizeRect(r.XInit, r.YInit, r.XEnd, r.YEnd)
		id := r.RectID
		rect.ID = &id
		set.Rects = append(set.Rects, rect)
	}

	cur, err = m.db.Collection("verified_grids").Find(ctx, bson.M{"image_id": imageID})
	if err != nil {
		return nil, netErr("load grid", err)
	}
	var cells []struct {
		X int `bson:"x"`
		Y int `bson:"y"`
	}
	if err := cur.All(ctx, &cells); err != nil {
		return nil, netErr("load grid", err)
	}
	for _, c := range cells {
		set.VerifiedCells = append(set.VerifiedCells, domain.GridCell{Col: c.X, Row: c.Y})
	}

	var details struct {
		TotalEggs int `bson:"total_eggs"`
	}
	err = m.db.Collection("image_details").FindOne(ctx, bson.M{"image_id": imageID}).Decode(&details)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, netErr("load totals", err)
	}
	set.TotalEggs = details.TotalEggs
	return set, nil
}

func (m *MongoStore) adjustTotal(ctx context.Context, imageID, delta int) error {
	_, err := m.db.Collection("image_details").UpdateOne(ctx,
		bson.M{"image_id": imageID},
		bson.M{"$inc": bson.M{"total_eggs": delta}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return netErr("adjust total", err)
	}
	return nil
}

// nextID allocates the next value of a named counter.
func (m *MongoStore) nextID(ctx context.Context, name string) (int, error) {
	var out struct {
		Seq int `bson:"seq"`
	}
	err := m.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	return out.Seq, err
}
