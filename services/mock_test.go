package services

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockDB(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// toDoc round-trips v through BSON so mock replies carry the same field
// names the services decode.
func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %T: %v", v, err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal %T: %v", v, err)
	}
	return doc
}

// found is the reply to a FindOne or a single-batch Find.
func found(t *testing.T, ns string, docs ...any) bson.D {
	batch := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		batch = append(batch, toDoc(t, doc))
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, batch...)
}

// modified is the reply to a FindOneAndUpdate returning v.
func modified(t *testing.T, v any) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, v)})
}

func acknowledged(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

// sent lists the commands the mock client issued, as "<command> <collection>".
func sent(mt *mtest.T) []string {
	var out []string
	for _, evt := range mt.GetAllStartedEvents() {
		coll, _ := evt.Command.Lookup(evt.CommandName).StringValueOK()
		out = append(out, evt.CommandName+" "+coll)
	}
	return out
}

// lastCommand returns the most recent command named name, failing the test
// when none was sent.
func lastCommand(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	events := mt.GetAllStartedEvents()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].CommandName == name {
			return events[i].Command
		}
	}
	mt.Fatalf("no %s command sent, got %v", name, sent(mt))
	return nil
}
