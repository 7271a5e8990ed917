package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/lis/pkg/db"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    int64 `gorm:"primaryKey"`
	OrgID int64
	Name  string
}

func TestStoreScopesByFilter(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))

	ctx := context.Background()
	s := ProvideStore[widget](conn)
	require.NoError(t, s.Create(ctx, &widget{ID: 1, OrgID: 1, Name: "a"}))
	require.NoError(t, s.Create(ctx, &widget{ID: 2, OrgID: 1, Name: "b"}))
	require.NoError(t, s.Create(ctx, &widget{ID: 3, OrgID: 2, Name: "c"}))

	rows, err := s.Find(ctx, &widget{OrgID: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	missing, err := s.FindOne(ctx, &widget{ID: 3, OrgID: 1})
	require.NoError(t, err)
	require.Nil(t, missing)

	n, err := s.Update(ctx, &widget{ID: 2, OrgID: 1}, map[string]any{"name": "bb"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.FindOne(ctx, &widget{ID: 2})
	require.NoError(t, err)
	require.Equal(t, "bb", got.Name)

	n, err = s.Delete(ctx, &widget{ID: 3, OrgID: 1})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = s.Delete(ctx, nil)
	require.ErrorIs(t, err, ErrNilFilter)
}
