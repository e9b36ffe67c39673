package store_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rickgao/prediction-pulse/internal/model"
	"github.com/rickgao/prediction-pulse/internal/store"
	"github.com/rickgao/prediction-pulse/internal/store/storetest"
)

func TestWriteBatchOrder(t *testing.T) {
	mem := &storetest.Memory{}
	b := model.Batch{
		Events:    []model.Event{{EventID: "E"}},
		Markets:   []model.Market{{MarketID: "M"}},
		Snapshots: []model.SnapshotRecord{{MarketID: "M"}},
		Outcomes:  []model.Outcome{{MarketID: "M", OutcomeName: "Yes"}},
	}

	if err := store.WriteBatch(context.Background(), mem, b, nil); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	want := []string{"UpsertEvents", "UpsertMarkets", "InsertSnapshots", "InsertOutcomes"}
	if got := mem.CallLog(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestWriteBatchError(t *testing.T) {
	boom := errors.New("boom")
	mem := &storetest.Memory{Err: boom}

	err := store.WriteBatch(context.Background(), mem, model.Batch{Markets: []model.Market{{MarketID: "M"}}}, nil)
	if !errors.Is(err, boom) {
		t.Errorf("WriteBatch error = %v, want %v", err, boom)
	}
}
