package vector

import (
	"context"
	"errors"
	"testing"

	"edurag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	rows [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.i-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.i-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		case *float64:
			*p = row[i].(float64)
		case *models.ChunkMetadata:
			*p = row[i].(models.ChunkMetadata)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

type fakeQueryer struct {
	sql  string
	args []any
	rows *fakeRows
	err  error
}

func (q *fakeQueryer) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPGSearcherBindsThresholdAndConvertsDistance(t *testing.T) {
	q := &fakeQueryer{rows: &fakeRows{rows: [][]any{
		{"c1", "d1", "ctx", 0, "primer texto", 0, 120, models.ChunkMetadata{Length: 120}, "tema1.pdf", 0.1},
		{"c2", "d1", "ctx", 1, "segundo texto", 100, 230, models.ChunkMetadata{Length: 130}, "tema1.pdf", 0.3},
	}}}
	res, err := NewPGSearcher(q).Search(context.Background(), SearchQuery{ContextID: "ctx", Vector: []float32{1, 0}})
	require.NoError(t, err)

	require.Equal(t, []any{"ctx", "[1,0]", DefaultTopK, 1 - DefaultMinSimilarity}, q.args)
	require.Contains(t, q.sql, "<=>")
	require.Contains(t, q.sql, "d.status = 'completed'")

	require.Len(t, res, 2)
	require.Equal(t, "c1", res[0].Chunk.ID)
	require.Equal(t, "tema1.pdf", res[0].Filename)
	require.InDelta(t, 0.9, res[0].Score, 1e-9)
	require.InDelta(t, 0.7, res[1].Score, 1e-9)
	require.Equal(t, 130, res[1].Chunk.Metadata.Length)
}

func TestPGSearcherWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewPGSearcher(&fakeQueryer{err: boom}).Search(context.Background(), SearchQuery{ContextID: "ctx"})
	require.ErrorIs(t, err, boom)

	_, err = NewPGSearcher(&fakeQueryer{rows: &fakeRows{err: boom}}).Search(context.Background(), SearchQuery{ContextID: "ctx"})
	require.ErrorIs(t, err, boom)
}

func TestSearchQueryDefaults(t *testing.T) {
	q := SearchQuery{}.withDefaults()
	require.Equal(t, DefaultTopK, q.TopK)
	require.Equal(t, DefaultMinSimilarity, q.MinSimilarity)
	require.InDelta(t, 0.6, SearchQuery{MinSimilarity: 0.4}.MaxDistance(), 1e-12)
}
