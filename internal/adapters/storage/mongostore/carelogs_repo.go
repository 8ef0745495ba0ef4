package mongostore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"patient-care/internal/domain/carelogs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const careLogsCollection = "care_logs"

type CareLogsRepo struct {
	coll *mongo.Collection
}

func NewCareLogsRepo(db *mongo.Database) *CareLogsRepo {
	return &CareLogsRepo{coll: db.Collection(careLogsCollection)}
}

// EnsureIndexes crea el índice (patient_id, occurred_at desc).
func (r *CareLogsRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "occurred_at", Value: -1}},
	})
	return err
}

// careLogDoc es la forma persistida; _id es el id de dominio.
type careLogDoc struct {
	ID         string          `bson:"_id"`
	PatientID  string          `bson:"patient_id"`
	Kind       string          `bson:"kind"`
	OccurredAt time.Time       `bson:"occurred_at"`
	RecordedAt time.Time       `bson:"recorded_at"`
	Title      string          `bson:"title"`
	Notes      string          `bson:"notes"`
	ActorType  string          `bson:"actor_type"`
	ActorID    string          `bson:"actor_id"`
	Status     string          `bson:"status"`
	VoidedAt   *time.Time      `bson:"voided_at,omitempty"`
	Detail     carelogs.Detail `bson:"detail"`
}

func toDoc(e carelogs.LogEntry) careLogDoc {
	return careLogDoc{
		ID:         e.ID,
		PatientID:  e.PatientID,
		Kind:       string(e.Kind),
		OccurredAt: e.OccurredAt.UTC(),
		RecordedAt: e.RecordedAt.UTC(),
		Title:      e.Title,
		Notes:      e.Notes,
		ActorType:  string(e.Actor.Type),
		ActorID:    e.Actor.ID,
		Status:     string(e.Status),
		VoidedAt:   e.VoidedAt,
		Detail:     e.Detail,
	}
}

func (d careLogDoc) entry() carelogs.LogEntry {
	return carelogs.LogEntry{
		ID:         d.ID,
		PatientID:  d.PatientID,
		Kind:       carelogs.Kind(d.Kind),
		OccurredAt: d.OccurredAt,
		RecordedAt: d.RecordedAt,
		Title:      d.Title,
		Notes:      d.Notes,
		Actor:      carelogs.Actor{Type: carelogs.ActorType(d.ActorType), ID: d.ActorID},
		Status:     carelogs.Status(d.Status),
		VoidedAt:   d.VoidedAt,
		Detail:     d.Detail,
	}
}

func (r *CareLogsRepo) Create(ctx context.Context, e carelogs.LogEntry) error {
	_, err := r.coll.InsertOne(ctx, toDoc(e))
	return err
}

func (r *CareLogsRepo) GetByID(ctx context.Context, id string) (carelogs.LogEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carelogs.LogEntry{}, carelogs.ErrNotFound
	}
	var d careLogDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return carelogs.LogEntry{}, carelogs.ErrNotFound
		}
		return carelogs.LogEntry{}, err
	}
	return d.entry(), nil
}

// listQuery arma el filtro de ListByPatient. q busca en título, notas, texto
// de la nota y condición del antecedente.
func listQuery(patientID string, filter carelogs.ListFilter) bson.M {
	q := bson.M{"patient_id": patientID}

	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		q["kind"] = bson.M{"$in": kinds}
	}
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = filter.From.UTC()
		}
		if filter.To != nil {
			rng["$lte"] = filter.To.UTC()
		}
		q["occurred_at"] = rng
	}
	if text := strings.TrimSpace(filter.Query); text != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(text), "$options": "i"}
		q["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"notes": re},
			bson.M{"detail.note.text": re},
			bson.M{"detail.history.condition": re},
		}
	}
	return q
}

func (r *CareLogsRepo) ListByPatient(ctx context.Context, patientID string, filter carelogs.ListFilter) ([]carelogs.LogEntry, error) {
	q := listQuery(patientID, filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = carelogs.DefaultListLimit
	}
	if limit > carelogs.MaxListLimit {
		limit = carelogs.MaxListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]carelogs.LogEntry, 0)
	for cursor.Next(ctx) {
		var d careLogDoc
		if err := cursor.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.entry())
	}
	return out, cursor.Err()
}

func (r *CareLogsRepo) Void(ctx context.Context, id string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(carelogs.StatusVoided), "voided_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return carelogs.ErrNotFound
	}
	return nil
}

func (r *CareLogsRepo) DeleteByPatient(ctx context.Context, patientID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"patient_id": patientID})
	return err
}
