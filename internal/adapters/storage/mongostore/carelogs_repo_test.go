package mongostore

import (
	"testing"

	"patient-care/internal/domain/carelogs"

	"go.mongodb.org/mongo-driver/bson"
)

func TestListQuery_SearchesDetailText(t *testing.T) {
	q := listQuery("patient-1", carelogs.ListFilter{Query: " lunch (2) ", Kinds: []carelogs.Kind{carelogs.KindNote}})

	if q["patient_id"] != "patient-1" {
		t.Fatalf("unexpected patient filter %v", q["patient_id"])
	}
	or, ok := q["$or"].(bson.A)
	if !ok || len(or) != 4 {
		t.Fatalf("expected 4 searched fields, got %#v", q["$or"])
	}
	fields := map[string]bool{}
	for _, c := range or {
		for k, v := range c.(bson.M) {
			fields[k] = true
			if re := v.(bson.M)["$regex"]; re != `lunch \(2\)` {
				t.Fatalf("expected quoted regex, got %v", re)
			}
		}
	}
	for _, f := range []string{"title", "notes", "detail.note.text", "detail.history.condition"} {
		if !fields[f] {
			t.Fatalf("q does not search %s", f)
		}
	}

	if _, ok := listQuery("patient-1", carelogs.ListFilter{})["$or"]; ok {
		t.Fatalf("empty q must not add $or")
	}
}
