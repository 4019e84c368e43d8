package repositories

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRows struct {
	rows [][]any
	idx  int
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if row[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

type fakeDB struct {
	queryRows *fakeRows
	lastSQL   string
}

func (db *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	db.lastSQL = sql
	return pgconn.CommandTag{}, nil
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.lastSQL = sql
	return db.queryRows, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.lastSQL = sql
	return &fakeRows{}
}

func TestListIncludesDefaults(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{queryRows: &fakeRows{rows: [][]any{
		{"prf_1", "web", "VP9 web preset", map[string]any{"output_format": "webm", "crf": float64(30)}, now},
		{"prf_2", "archive", "", map[string]any{}, now},
	}}}

	repo := NewProfileRepository(db)

	profiles, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("len(profiles) = %d, want 2", len(profiles))
	}

	want := map[string]any{"output_format": "webm", "crf": float64(30)}
	if !reflect.DeepEqual(profiles[0].Defaults, want) {
		t.Errorf("Defaults = %v, want %v", profiles[0].Defaults, want)
	}
	if profiles[1].Defaults == nil {
		t.Error("empty defaults should be an empty map, not nil")
	}
	if profiles[0].Name != "web" || profiles[1].Name != "archive" {
		t.Errorf("names = %q, %q", profiles[0].Name, profiles[1].Name)
	}
}
