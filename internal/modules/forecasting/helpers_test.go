package forecasting

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aristath/koforecast/internal/database"
)

// syntheticRows returns an m x n AR(1)-driven functional series as rows.
func syntheticRows(m, n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, m)
	for i := range rows {
		rows[i] = make([]float64, n)
	}
	state := 0.0
	for t := 0; t < n; t++ {
		state = 0.65*state + rng.NormFloat64()
		for i := 0; i < m; i++ {
			x := float64(i) / float64(m)
			rows[i][t] = state*math.Sin(math.Pi*x+0.2) + 0.2*rng.NormFloat64() + 1
		}
	}
	return rows
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "forecasts.db"),
		Name: "forecasts",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn(), zerolog.Nop())
}

func ptr[T any](v T) *T { return &v }
