package sites

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/angelmondragon/gearstage-backend/internal/allocation"
	"github.com/angelmondragon/gearstage-backend/internal/calendar"
	"github.com/angelmondragon/gearstage-backend/internal/equipment"
	"github.com/angelmondragon/gearstage-backend/internal/inventory"
	"github.com/angelmondragon/gearstage-backend/pkg/db"
	"github.com/angelmondragon/gearstage-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gearstage-backend/pkg/db/models"
	"github.com/angelmondragon/gearstage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gearstage-backend/pkg/errors"
	"github.com/angelmondragon/gearstage-backend/pkg/logger"
	"github.com/angelmondragon/gearstage-backend/pkg/metrics"
	"github.com/angelmondragon/gearstage-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	created   []calendar.Summary
	updated   []string
	deleted   []string
	createErr error
	updateErr error
	deleteErr error
	nextID    int
	onCreate  func()
}

func (f *fakeMirror) Create(ctx context.Context, summary calendar.Summary) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.onCreate != nil {
		f.onCreate()
	}
	f.nextID++
	f.created = append(f.created, summary)
	return "evt-" + strconv.Itoa(f.nextID), nil
}

func (f *fakeMirror) Update(ctx context.Context, externalID string, summary calendar.Summary) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, externalID)
	return nil
}

func (f *fakeMirror) Delete(ctx context.Context, externalID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, externalID)
	return nil
}

type siteFixture struct {
	client  *db.Client
	catalog *equipment.Repository
	repo    *Repository
	mirror  *fakeMirror
	svc     Service
}

func newSiteFixture(t *testing.T, stock map[int64]int) *siteFixture {
	t.Helper()
	client := dbtest.Client(t)
	for id, qty := range stock {
		item := models.Equipment{ID: id, Name: "item-" + string(rune('A'+id%26)), Stock: qty}
		require.NoError(t, client.DB().Omit("Categories").Create(&item).Error)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	catalog := equipment.NewRepository(client.DB())
	ledger, err := inventory.NewLedger(catalog, metrics.NewLedgerMetrics(prometheus.NewRegistry()), logg)
	require.NoError(t, err)
	repo := NewRepository(client.DB())
	mirror := &fakeMirror{}
	svc, err := NewService(repo, catalog, ledger, mirror, client, logg)
	require.NoError(t, err)
	return &siteFixture{client: client, catalog: catalog, repo: repo, mirror: mirror, svc: svc}
}

func (f *siteFixture) stock(t *testing.T, id int64) int {
	t.Helper()
	s, err := f.catalog.GetStock(context.Background(), id)
	require.NoError(t, err)
	return s
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func siteInput(status enums.SiteStatus, lines ...allocation.Entry) SiteInput {
	return SiteInput{
		Name:      "Spring Expo",
		StartDate: day(10),
		EndDate:   day(12),
		Status:    status,
		Lines:     lines,
	}
}

func entry(id int64, qty int) allocation.Entry {
	return allocation.Entry{EquipmentID: id, Quantity: qty}
}

func (f *siteFixture) create(t *testing.T, in SiteInput) *SaveResult {
	t.Helper()
	res, err := f.svc.Create(context.Background(), CreateInput{SiteInput: in, CreatedBy: "ops@example.com"})
	require.NoError(t, err)
	return res
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestCreateReservesAndMirrors(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{1: 3, 5: 10})
	in := siteInput(enums.SiteStatusConfirmed, entry(5, 4))
	in.Input = "#1*2"

	res, err := f.svc.Create(context.Background(), CreateInput{
		SiteInput: in,
		ClientID:  "temp-1712",
		CreatedBy: "ops@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "temp-1712", res.ClientID)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Site)
	require.Len(t, res.Site.Allocations, 2)
	assert.Equal(t, int64(5), res.Site.Allocations[0].EquipmentID)
	assert.Equal(t, 4, res.Site.Allocations[0].Quantity)
	assert.Equal(t, int64(1), res.Site.Allocations[1].EquipmentID)
	assert.Equal(t, "2026-03-10", res.Site.StartDate)
	assert.Equal(t, string(enums.CalendarSyncStatusSynced), res.Site.CalendarSyncStatus)
	require.NotNil(t, res.Site.CalendarEventID)
	assert.Equal(t, "evt-1", *res.Site.CalendarEventID)

	assert.Equal(t, 6, f.stock(t, 5))
	assert.Equal(t, 1, f.stock(t, 1))
	require.Len(t, f.mirror.created, 1)
	assert.Equal(t, res.Site.ID, f.mirror.created[0].SiteID)
}

func TestCreateInsufficientStockPersistsNothing(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10, 6: 2})

	_, err := f.svc.Create(context.Background(), CreateInput{
		SiteInput: siteInput(enums.SiteStatusConfirmed, entry(6, 1), entry(5, 11)),
		CreatedBy: "ops@example.com",
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	rejected, ok := pkgerrors.As(err).Details().(types.LineErrors)
	require.True(t, ok)
	require.Len(t, rejected.Lines, 1)
	details, ok := rejected.Lines[0].Details.(equipment.StockShortage)
	require.True(t, ok)
	assert.Equal(t, int64(5), details.EquipmentID)
	assert.Equal(t, 11, details.Requested)
	assert.Equal(t, 10, details.Available)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Site{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, f.stock(t, 5))
	assert.Equal(t, 2, f.stock(t, 6))
	assert.Empty(t, f.mirror.created)
}

func TestCreateRejectsUnknownEquipmentAndBadInput(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{SiteInput: siteInput(enums.SiteStatusDraft, entry(404, 1)), CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, CreateInput{SiteInput: siteInput(enums.SiteStatusDraft), ClientID: "abc", CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	bad := siteInput(enums.SiteStatusDraft)
	bad.EndDate = day(9)
	_, err = f.svc.Create(ctx, CreateInput{SiteInput: bad, CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	neg := siteInput(enums.SiteStatusDraft)
	neg.Budget = decimal.NewNullDecimal(decimal.NewFromInt(-5))
	_, err = f.svc.Create(ctx, CreateInput{SiteInput: neg, CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{SiteInput: siteInput(enums.SiteStatusDraft, entry(5, 1), entry(5, 2)), CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDuplicateEquipment))

	_, err = f.svc.Create(ctx, CreateInput{SiteInput: SiteInput{Name: "x", StartDate: day(1), EndDate: day(1), Input: "#5*0"}, CreatedBy: "ops"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeParse))

	assert.Equal(t, 10, f.stock(t, 5))
}

func TestCreateReportsEveryRejectedLine(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10, 6: 2})

	in := siteInput(enums.SiteStatusConfirmed, entry(404, 1), entry(5, 11))
	in.Input = "#5*1,abc,#6*3"
	_, err := f.svc.Create(context.Background(), CreateInput{SiteInput: in, CreatedBy: "ops"})

	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)
	rejected, ok := pkgerrors.As(err).Details().(types.LineErrors)
	require.True(t, ok)
	assert.Equal(t, 4, rejected.Rejected)
	codes := make([]string, 0, len(rejected.Lines))
	for _, line := range rejected.Lines {
		codes = append(codes, line.Code)
	}
	assert.Equal(t, []string{
		string(pkgerrors.CodeNotFound),
		string(pkgerrors.CodeInsufficientStock),
		string(pkgerrors.CodeParse),
		string(pkgerrors.CodeInsufficientStock),
	}, codes)
	assert.Contains(t, pkgerrors.As(err).Message(), "4 allocation lines rejected")

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Site{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, f.stock(t, 5))
	assert.Equal(t, 2, f.stock(t, 6))
}

func TestCreateDraftSkipsCalendar(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	res := f.create(t, siteInput(enums.SiteStatusDraft, entry(5, 2)))

	assert.Equal(t, string(enums.CalendarSyncStatusSkipped), res.Site.CalendarSyncStatus)
	assert.Nil(t, res.Site.CalendarEventID)
	assert.Empty(t, f.mirror.created)
	assert.Equal(t, 8, f.stock(t, 5))
}

func TestUpdateReconcilesAgainstCommittedAllocation(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusConfirmed, entry(5, 4)))
	assert.Equal(t, 6, f.stock(t, 5))

	res, err := f.svc.Update(ctx, a.Site.ID, siteInput(enums.SiteStatusConfirmed, entry(5, 7)))
	require.NoError(t, err)
	assert.Equal(t, 7, res.Site.Allocations[0].Quantity)
	assert.Equal(t, 3, f.stock(t, 5))
	assert.Equal(t, []string{"evt-1"}, f.mirror.updated)

	f.create(t, siteInput(enums.SiteStatusDraft, entry(5, 3)))
	assert.Equal(t, 0, f.stock(t, 5))

	_, err = f.svc.Update(ctx, a.Site.ID, siteInput(enums.SiteStatusConfirmed, entry(5, 8)))
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	got, err := f.svc.Get(ctx, a.Site.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Allocations[0].Quantity)
	assert.Equal(t, 0, f.stock(t, 5))

	_, err = f.svc.Update(ctx, a.Site.ID, siteInput(enums.SiteStatusConfirmed, entry(5, 1)))
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t, 5))
}

func TestUpdateCanSwapEquipment(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{1: 2, 2: 5})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusDraft, entry(1, 2)))
	in := siteInput(enums.SiteStatusDraft)
	in.Input = "2*5"
	res, err := f.svc.Update(ctx, a.Site.ID, in)
	require.NoError(t, err)

	require.Len(t, res.Site.Allocations, 1)
	assert.Equal(t, int64(2), res.Site.Allocations[0].EquipmentID)
	assert.Equal(t, 2, f.stock(t, 1))
	assert.Equal(t, 0, f.stock(t, 2))
}

func TestDeleteReleasesOnce(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusConfirmed, entry(5, 7)))
	assert.Equal(t, 3, f.stock(t, 5))

	res, err := f.svc.Delete(ctx, a.Site.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Site)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 10, f.stock(t, 5))
	assert.Equal(t, []string{"evt-1"}, f.mirror.deleted)

	_, err = f.svc.Delete(ctx, a.Site.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 10, f.stock(t, 5))

	_, err = f.svc.Get(ctx, a.Site.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Update(ctx, a.Site.ID, siteInput(enums.SiteStatusConfirmed))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	stored, err := f.repo.FindAny(ctx, a.Site.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ReleasedAt)
	assert.Nil(t, stored.CalendarEventID)
}

func TestMirrorFailureIsWarningAndResyncRecovers(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()
	f.mirror.createErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("503"), "calendar create failed").
		WithDetails(calendar.MirrorFailure{Operation: calendar.OpCreate, Attempts: 3})

	res := f.create(t, siteInput(enums.SiteStatusConfirmed, entry(5, 4)))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, pkgerrors.CodeDependency, res.Warnings[0].Code)
	assert.Equal(t, calendar.MirrorFailure{Operation: calendar.OpCreate, Attempts: 3}, res.Warnings[0].Details)
	assert.Equal(t, string(enums.CalendarSyncStatusFailed), res.Site.CalendarSyncStatus)
	assert.Equal(t, 6, f.stock(t, 5))

	f.mirror.createErr = nil
	report, err := f.svc.ResyncFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ResyncReport{Attempted: 1, Synced: 1}, report)

	got, err := f.svc.Get(ctx, res.Site.ID)
	require.NoError(t, err)
	assert.Equal(t, string(enums.CalendarSyncStatusSynced), got.CalendarSyncStatus)
	require.NotNil(t, got.CalendarEventID)
	assert.Nil(t, got.CalendarSyncError)

	report, err = f.svc.ResyncFailed(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestUpdateRecreatesEventDeletedRemotely(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusConfirmed, entry(5, 1)))
	require.Equal(t, "evt-1", *a.Site.CalendarEventID)

	f.mirror.updateErr = fmt.Errorf("update event evt-1: %w", calendar.ErrEventGone)
	res, err := f.svc.Update(ctx, a.Site.ID, siteInput(enums.SiteStatusConfirmed, entry(5, 2)))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Site.CalendarEventID)
	assert.Equal(t, "evt-2", *res.Site.CalendarEventID)
	assert.Equal(t, string(enums.CalendarSyncStatusSynced), res.Site.CalendarSyncStatus)

	stored, err := f.repo.FindAny(ctx, a.Site.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CalendarEventID)
	assert.Equal(t, "evt-2", *stored.CalendarEventID)
}

func TestConcurrentEventAttachKeepsOneEvent(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusDraft, entry(5, 1)))
	winner := "evt-winner"
	f.mirror.onCreate = func() {
		claimed, err := f.repo.SwapEventID(ctx, a.Site.ID, nil, &winner)
		require.NoError(t, err)
		require.True(t, claimed)
	}

	res, err := f.svc.UpdateStatus(ctx, a.Site.ID, enums.SiteStatusConfirmed)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Site.CalendarEventID)
	assert.Equal(t, winner, *res.Site.CalendarEventID)
	assert.Equal(t, []string{"evt-1"}, f.mirror.deleted)
	assert.Equal(t, []string{winner}, f.mirror.updated)

	stored, err := f.repo.FindAny(ctx, a.Site.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, *stored.CalendarEventID)
	assert.Equal(t, enums.CalendarSyncStatusSynced, stored.CalendarSyncStatus)
}

func TestResyncReplaysDeleteOfRemovedSite(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusConfirmed, entry(5, 1)))
	f.mirror.deleteErr = errors.New("timeout")
	res, err := f.svc.Delete(ctx, a.Site.ID)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 10, f.stock(t, 5))

	f.mirror.deleteErr = nil
	report, err := f.svc.ResyncFailed(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, []string{"evt-1"}, f.mirror.deleted)
}

func TestUpdateStatusDrivesCalendarPolicy(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 10})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusDraft, entry(5, 2)))
	res, err := f.svc.UpdateStatus(ctx, a.Site.ID, enums.SiteStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, string(enums.SiteStatusConfirmed), res.Site.Status)
	require.NotNil(t, res.Site.CalendarEventID)

	res, err = f.svc.UpdateStatus(ctx, a.Site.ID, enums.SiteStatusCancelled)
	require.NoError(t, err)
	assert.Nil(t, res.Site.CalendarEventID)
	assert.Equal(t, []string{"evt-1"}, f.mirror.deleted)
	assert.Equal(t, 8, f.stock(t, 5))

	_, err = f.svc.UpdateStatus(ctx, a.Site.ID, enums.SiteStatus("archived"))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestListFiltersByDateWindow(t *testing.T) {
	f := newSiteFixture(t, nil)
	ctx := context.Background()

	early := siteInput(enums.SiteStatusDraft)
	early.Name = "Early"
	early.StartDate, early.EndDate = day(1), day(3)
	late := siteInput(enums.SiteStatusConfirmed)
	late.Name = "Late"
	late.StartDate, late.EndDate = day(20), day(25)
	f.create(t, early)
	f.create(t, late)

	from, to := day(3), day(19)
	rows, err := f.svc.List(ctx, ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Early", rows[0].Name)

	status := enums.SiteStatusConfirmed
	rows, err = f.svc.List(ctx, ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Late", rows[0].Name)

	_, err = f.svc.List(ctx, ListFilter{From: &to, To: &from})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestCommittedQuantitiesFeedsPreviewCredit(t *testing.T) {
	f := newSiteFixture(t, map[int64]int{5: 4})
	ctx := context.Background()

	a := f.create(t, siteInput(enums.SiteStatusDraft, entry(5, 4)))
	credit, err := f.repo.CommittedQuantities(ctx, a.Site.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{5: 4}, credit)

	builder, err := allocation.NewBuilder(f.catalog)
	require.NoError(t, err)
	previewer, err := allocation.NewPreviewer(builder, f.repo)
	require.NoError(t, err)
	out, err := previewer.Preview(ctx, allocation.PreviewInput{SiteID: &a.Site.ID, Input: "#5*4"})
	require.NoError(t, err)
	assert.Empty(t, out.Errors)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, 4, out.Lines[0].Available)

	_, err = f.repo.CommittedQuantities(ctx, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID("temp-42"))
	assert.False(t, IsTempID("temp-"))
	assert.False(t, IsTempID("4a0c5e61-92b2-4b6f-8f53-1d6a1b0c9e11"))
}
