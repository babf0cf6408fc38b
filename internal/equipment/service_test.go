package equipment

import (
	"bytes"
	"context"
	"testing"

	"github.com/angelmondragon/gearstage-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}))
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestServiceCreateAssignsRecycledIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Create(ctx, CreateInput{Name: "Speaker", Stock: 4})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateInput{Name: "Mixer", Stock: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, string(enums.EquipmentStatusAvailable), first.Status)

	require.NoError(t, svc.Delete(ctx, first.ID))
	third, err := svc.Create(ctx, CreateInput{Name: "Cable", Stock: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), third.ID)

	movements, err := svc.ListMovements(ctx, third.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, 20, movements[0].Delta)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []CreateInput{
		{Name: " ", Stock: 1},
		{Name: "Speaker", Stock: -1},
		{Name: "Speaker", Stock: 1, Status: enums.EquipmentStatus("broken")},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), input)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "input %+v", input)
	}

	_, err := svc.Create(context.Background(), CreateInput{Name: "Speaker", CategoryIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceUpdateLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Name: "Speaker", Stock: 4})
	require.NoError(t, err)

	name := "Line array"
	status := enums.EquipmentStatusMaintenance
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Line array", updated.Name)
	assert.Equal(t, string(status), updated.Status)
	assert.Equal(t, 4, updated.Stock)

	_, err = svc.Update(ctx, 42, UpdateInput{Name: &name})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceCorrectStockJournalsDelta(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	created, err := svc.Create(ctx, CreateInput{Name: "Speaker", Stock: 4})
	require.NoError(t, err)

	corrected, err := svc.CorrectStock(ctx, created.ID, CorrectStockInput{Stock: 1, Reason: "3 units damaged"})
	require.NoError(t, err)
	assert.Equal(t, 1, corrected.Stock)

	movements, err := svc.ListMovements(ctx, created.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	kinds := map[int]string{}
	for _, m := range movements {
		kinds[m.Delta] = m.Kind
	}
	assert.Equal(t, string(enums.StockMovementKindCorrection), kinds[-3])

	_, err = svc.CorrectStock(ctx, created.ID, CorrectStockInput{Stock: -1, Reason: "x"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = svc.CorrectStock(ctx, created.ID, CorrectStockInput{Stock: 2})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = svc.CorrectStock(ctx, 77, CorrectStockInput{Stock: 2, Reason: "audit"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceListMovementsUnknownEquipment(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListMovements(context.Background(), 9, 10)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
