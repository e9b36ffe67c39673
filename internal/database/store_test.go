package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/prediction-pulse/internal/model"
)

// fakeDB records statements and answers Exec with a fixed tag.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	batches  []int
	tag      string
	err      error
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported by fake")
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b.Len())
	return &fakeResults{err: f.err}
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions not supported by fake")
}

type fakeResults struct {
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}
func (r *fakeResults) Query() (pgx.Rows, error) { return nil, r.err }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func newTestStore(db DB, chunk int) *Store {
	return NewStore(db, chunk, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInsertChunks(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db, 2)

	snaps := make([]model.SnapshotRecord, 5)
	for i := range snaps {
		snaps[i] = model.SnapshotRecord{MarketID: "M", Timestamp: model.NewTime(time.Now())}
	}

	n, err := s.InsertSnapshots(context.Background(), snaps)
	if err != nil {
		t.Fatalf("InsertSnapshots failed: %v", err)
	}
	if n != 5 {
		t.Errorf("written = %d, want 5", n)
	}
	if len(db.batches) != 3 || db.batches[0] != 2 || db.batches[2] != 1 {
		t.Errorf("batches = %v, want [2 2 1]", db.batches)
	}
}

func TestInsertEmpty(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db, 10)

	n, err := s.UpsertMarkets(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("UpsertMarkets(nil) = %d, %v; want 0, nil", n, err)
	}
	if len(db.batches) != 0 {
		t.Errorf("batches = %v, want none", db.batches)
	}
}

func TestInsertError(t *testing.T) {
	boom := errors.New("boom")
	s := newTestStore(&fakeDB{err: boom}, 10)

	_, err := s.UpsertEvents(context.Background(), []model.Event{{EventID: "E"}})
	if !errors.Is(err, boom) {
		t.Errorf("UpsertEvents error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "insert events") {
		t.Errorf("error = %q, want table context", err)
	}
}

func TestDeletes(t *testing.T) {
	db := &fakeDB{tag: "DELETE 3"}
	s := newTestStore(db, 10)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.DeleteSnapshotsBefore(ctx, now)
	if err != nil || n != 3 {
		t.Fatalf("DeleteSnapshotsBefore = %d, %v; want 3, nil", n, err)
	}
	if _, err := s.DeleteOutcomes(ctx, []string{"A"}); err != nil {
		t.Fatalf("DeleteOutcomes: %v", err)
	}
	if n, _ := s.DeleteOutcomes(ctx, nil); n != 0 {
		t.Errorf("DeleteOutcomes(nil) = %d, want 0", n)
	}
	if _, err := s.DeleteMarketsByStatus(ctx, []string{"RESOLVED"}); err != nil {
		t.Fatalf("DeleteMarketsByStatus: %v", err)
	}

	if len(db.execSQL) != 3 {
		t.Fatalf("exec count = %d, want 3", len(db.execSQL))
	}
	if !strings.Contains(db.execSQL[0], "market_snapshots WHERE timestamp < $1") {
		t.Errorf("sql[0] = %q", db.execSQL[0])
	}
	if !strings.Contains(db.execSQL[2], "status = ANY($1)") {
		t.Errorf("sql[2] = %q", db.execSQL[2])
	}
	if got := db.execArgs[0][0].(time.Time); !got.Equal(now) {
		t.Errorf("cutoff arg = %v, want %v", got, now)
	}
}

func TestPricesBeforeEmpty(t *testing.T) {
	s := newTestStore(&fakeDB{}, 10)
	points, err := s.PricesBefore(context.Background(), nil, time.Now(), time.Now())
	if err != nil || points != nil {
		t.Errorf("PricesBefore(nil) = %v, %v; want nil, nil", points, err)
	}
}
