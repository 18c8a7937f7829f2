package erase_test

import (
	"context"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"resource-store/core/cache"
	"resource-store/core/database/dbtest"
	"resource-store/core/dberr"
	"resource-store/core/dialect"
	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/schema"
	"resource-store/core/storage/mocks"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"
	"resource-store/feature/erase"
	"resource-store/feature/extract"
	"resource-store/feature/parameter"
	"resource-store/feature/reference"
	"resource-store/feature/resource"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	tm        *txn.Manager
	resources *resource.Service
	dao       *erase.DAO
	service   *erase.Service
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, store *payload.Store) *fixture {
	t.Helper()
	ids, err := cache.NewIdentity(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	d := dialect.All[dialect.SQLite]
	tm := txn.NewManager(dbtest.Open(t, "Patient", "Observation"), d, ids, zap.NewNop())
	resolver := dictionary.NewResolver(ids, zap.NewNop())
	params := parameter.NewDAO(resolver, reference.NewDAO(resolver, zap.NewNop()))
	if store == nil {
		store = payload.NewStore(payload.Config{Compress: true}, nil, "", nil)
	}
	m := metrics.New(prometheus.NewRegistry())
	dao := erase.NewDAO(resolver, params, d, true, zap.NewNop())
	return &fixture{
		tm:        tm,
		resources: resource.NewService(tm, resource.NewDAO(resolver, params, zap.NewNop()), store, extract.MetaExtractor{}, m, zap.NewNop()),
		dao:       dao,
		service:   erase.NewService(tm, dao, store, m, zap.NewNop()),
		metrics:   m,
	}
}

func patient(id, mrn string) []byte {
	return []byte(`{"resourceType":"Patient","id":"` + id + `","meta":{"tag":[{"system":"urn:tags","code":"vip"}]},` +
		`"identifier":[{"system":"urn:mrn","value":"` + mrn + `"}],"subject":{"reference":"Group/g1"}}`)
}

// withVersions stores versions of Patient/id and returns its logical resource id.
func (f *fixture) withVersions(t *testing.T, id string, versions int) int64 {
	t.Helper()
	var lrid int64
	for v := 1; v <= versions; v++ {
		res, err := f.resources.Put(context.Background(), "Patient", id, patient(id, strings.Repeat("x", v)), nil, nil)
		require.NoError(t, err)
		require.Equal(t, v, res.VersionID)
		lrid = res.LogicalResourceID
	}
	return lrid
}

func (f *fixture) count(t *testing.T, table string, lrid int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.tm.DB().Table(table).Where("logical_resource_id = ?", lrid).Count(&n).Error)
	return n
}

func intPtr(v int) *int { return &v }

func TestErase_WholeResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	assert.Equal(t, "statements", f.dao.Strategy(), "sqlite has no erase routine")
	lrid := f.withVersions(t, "p1", 3)
	keep := f.withVersions(t, "p2", 1)

	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusDone, rec.Status)
	assert.Equal(t, int64(3), rec.Total)

	for _, table := range append([]string{"patient_resources", "patient_logical_resources", "logical_resources", "resource_change_log", "patient_str_values"},
		schema.GlobalParameterTables...) {
		assert.Zero(t, f.count(t, table, lrid), table)
	}
	assert.Equal(t, int64(1), f.count(t, "logical_resource_ident", lrid), "ident rows are kept")
	assert.Equal(t, int64(1), f.count(t, "patient_resources", keep))
	assert.NotZero(t, f.count(t, "resource_token_refs", keep))

	recs, err := f.service.Records(ctx, rec.ErasedResourceGroupID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Patient", recs[0].ResourceType)
	assert.Equal(t, "p1", recs[0].LogicalID)
	assert.Nil(t, recs[0].VersionID)

	_, err = f.resources.Read(ctx, "Patient", "p1")
	assert.ErrorIs(t, err, dberr.ErrNotFound)

	again, err := f.resources.Put(ctx, "Patient", "p1", patient("p1", "new"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusCreated, again.Status)
	assert.Equal(t, 1, again.VersionID, "an erased resource starts over at version 1")
	assert.Equal(t, lrid, again.LogicalResourceID)
}

func TestErase_SingleVersionPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	lrid := f.withVersions(t, "p1", 3)

	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusVersion, rec.Status)
	assert.Equal(t, int64(1), rec.Total)

	_, err = f.resources.VRead(ctx, "Patient", "p1", 2)
	assert.ErrorIs(t, err, dberr.ErrNotFound, "erased payload")
	for _, v := range []int{1, 3} {
		got, err := f.resources.VRead(ctx, "Patient", "p1", v)
		require.NoError(t, err)
		assert.Equal(t, patient("p1", strings.Repeat("x", v)), got.Data)
	}
	hist, err := f.resources.History(ctx, "Patient", "p1")
	require.NoError(t, err)
	require.Len(t, hist, 3, "the version row stays")
	assert.True(t, hist[1].Erased())
	assert.Equal(t, int64(2), f.count(t, "resource_change_log", lrid))

	snapshot := func() []int64 {
		return []int64{f.count(t, "patient_resources", lrid), f.count(t, "resource_change_log", lrid), f.count(t, "resource_token_refs", lrid)}
	}
	before := snapshot()
	var audits int64
	require.NoError(t, f.tm.DB().Model(&schema.ErasedResource{}).Count(&audits).Error)

	rec, err = f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusNotSupportedLatest, rec.Status)

	rec, err = f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusNotSupportedGreater, rec.Status)

	assert.Equal(t, before, snapshot(), "rejected erases change nothing")
	var auditsAfter int64
	require.NoError(t, f.tm.DB().Model(&schema.ErasedResource{}).Count(&auditsAfter).Error)
	assert.Equal(t, audits, auditsAfter)

	current, err := f.resources.Read(ctx, "Patient", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, current.VersionID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EraseResults.WithLabelValues(string(erase.StatusNotSupportedLatest))))
}

func TestErase_VersionOneOfSingleVersionResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	lrid := f.withVersions(t, "p1", 1)

	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusDone, rec.Status)
	assert.Zero(t, f.count(t, "patient_resources", lrid))
}

func TestErase_VersionOneOfMultiVersionResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	lrid := f.withVersions(t, "p1", 3)

	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusDone, rec.Status)
	assert.Equal(t, int64(3), rec.Total)
	assert.Zero(t, f.count(t, "patient_resources", lrid))
	assert.Zero(t, f.count(t, "logical_resources", lrid))

	recs, err := f.service.Records(ctx, rec.ErasedResourceGroupID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].VersionID)
}

func TestErase_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.withVersions(t, "p1", 2)

	for _, req := range []erase.Request{
		{ResourceType: "Patient", LogicalID: "missing"},
		{ResourceType: "Observation", LogicalID: "p1"},
		{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(0)},
	} {
		rec, err := f.service.Erase(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, erase.StatusNotFound, rec.Status, "%+v", req)
	}

	_, err := f.service.Erase(ctx, erase.Request{ResourceType: "bad type", LogicalID: "p1"})
	assert.Error(t, err)

	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Unknown", LogicalID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusNotFound, rec.Status)
	var count int64
	require.NoError(t, f.tm.DB().Model(&schema.ResourceType{}).Where("resource_type = ?", "Unknown").Count(&count).Error)
	assert.Zero(t, count, "unknown types are not registered by an erase")
}

func TestErase_GroupsAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.withVersions(t, "p1", 3)
	f.withVersions(t, "p2", 1)

	first, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(2)})
	require.NoError(t, err)
	second, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ErasedResourceGroupID, second.ErasedResourceGroupID)

	recs, err := f.service.Records(ctx, first.ErasedResourceGroupID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].VersionID)
	assert.Equal(t, 2, *recs[0].VersionID)

	n, err := f.service.Clear(ctx, first.ErasedResourceGroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recs, err = f.service.Records(ctx, first.ErasedResourceGroupID)
	require.NoError(t, err)
	assert.Empty(t, recs)
	recs, err = f.service.Records(ctx, second.ErasedResourceGroupID)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "other groups are untouched")
}

func TestErase_RemovesOffloadedPayloads(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	store := payload.NewStore(payload.Config{OffloadThreshold: 1}, client, "payloads", nil)
	f := newFixture(t, store)

	var keys []string
	client.On("PutObject", ctx, "payloads", mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.String(2)) }).
		Return(minio.UploadInfo{}, nil)
	f.withVersions(t, "p1", 3)
	require.Len(t, keys, 3)

	client.On("RemoveObjects", mock.Anything, "payloads", []string{keys[1]}).Return(nil).Once()
	rec, err := f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{keys[1]}, rec.PayloadKeys)

	client.On("RemoveObjects", mock.Anything, "payloads", []string{keys[0], keys[2]}).Return(nil).Once()
	rec, err = f.service.Erase(ctx, erase.Request{ResourceType: "Patient", LogicalID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, erase.StatusDone, rec.Status)
	client.AssertExpectations(t)
}

func mockedDAO(t *testing.T, id dialect.ID) (*txn.Manager, *erase.DAO, sqlmock.Sqlmock) {
	t.Helper()
	db, sqlMock := dbtest.Mock(t, id)
	ids, err := cache.NewIdentity(cache.DefaultConfig(), nil)
	require.NoError(t, err)
	ids.PrefillResourceTypes(map[string]int{"Patient": 1})
	d := dialect.All[id]
	tm := txn.NewManager(db, d, ids, zap.NewNop())
	resolver := dictionary.NewResolver(ids, zap.NewNop())
	params := parameter.NewDAO(resolver, reference.NewDAO(resolver, zap.NewNop()))
	return tm, erase.NewDAO(resolver, params, d, true, zap.NewNop()), sqlMock
}

func TestErase_PostgresProcedure(t *testing.T) {
	tm, dao, sqlMock := mockedDAO(t, dialect.Postgres)
	assert.Equal(t, "procedure", dao.Strategy())
	client := new(mocks.Client)
	svc := erase.NewService(tm, dao, payload.NewStore(payload.Config{}, client, "payloads", nil), nil, zap.NewNop())

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('fhir_sequence')")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(41))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = $1 AND logical_id = $2 FOR UPDATE")).
		WithArgs(1, "p1").WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id"}).AddRow(9))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT logical_resource_id, version_id FROM logical_resources WHERE logical_resource_id = $1 FOR UPDATE")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id", "version_id"}).AddRow(9, 3))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT resource_payload_key FROM patient_resources WHERE logical_resource_id = $1 AND resource_payload_key IS NOT NULL")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"resource_payload_key"}).AddRow("k1"))
	sqlMock.ExpectQuery(`INSERT INTO "erased_resources"`).
		WillReturnRows(sqlmock.NewRows([]string{"erased_resource_id"}).AddRow(5))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT erase_resource($1, $2)")).WithArgs(9, "Patient").
		WillReturnRows(sqlmock.NewRows([]string{"erase_resource"}).AddRow(3))
	sqlMock.ExpectCommit()
	client.On("RemoveObjects", mock.Anything, "payloads", []string{"k1"}).Return(nil).Once()

	rec, err := svc.Erase(context.Background(), erase.Request{ResourceType: "Patient", LogicalID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, &erase.ResourceEraseRecord{
		Status:                erase.StatusDone,
		ErasedResourceGroupID: 41,
		Total:                 3,
		PayloadKeys:           []string{"k1"},
	}, rec)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
	client.AssertExpectations(t)
}

func TestErase_MySQLProcedure(t *testing.T) {
	tm, dao, sqlMock := mockedDAO(t, dialect.MySQL)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT logical_resource_id FROM logical_resource_ident WHERE resource_type_id = ? AND logical_id = ? FOR UPDATE")).
		WithArgs(1, "p1").WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id"}).AddRow(9))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT logical_resource_id, version_id FROM logical_resources WHERE logical_resource_id = ? FOR UPDATE")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id", "version_id"}).AddRow(9, 1))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT resource_payload_key FROM patient_resources")).
		WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"resource_payload_key"}))
	sqlMock.ExpectExec("INSERT INTO `erased_resources`").WillReturnResult(sqlmock.NewResult(5, 1))
	sqlMock.ExpectQuery(regexp.QuoteMeta("CALL erase_resource(?, ?)")).WithArgs(9, "Patient").
		WillReturnRows(sqlmock.NewRows([]string{"deleted"}).AddRow("1"))
	sqlMock.ExpectCommit()

	var rec *erase.ResourceEraseRecord
	require.NoError(t, tm.Do(context.Background(), func(tx *txn.Tx) error {
		var err error
		rec, err = dao.Erase(tx, 7, erase.Request{ResourceType: "Patient", LogicalID: "p1", Version: intPtr(1)})
		return err
	}))
	assert.Equal(t, erase.StatusDone, rec.Status)
	assert.Equal(t, int64(1), rec.Total)
	assert.Empty(t, rec.PayloadKeys)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestErase_ProcedureMissingResource(t *testing.T) {
	tm, dao, sqlMock := mockedDAO(t, dialect.Postgres)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM logical_resource_ident").WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id"}).AddRow(9))
	sqlMock.ExpectQuery("FROM logical_resources").WillReturnRows(sqlmock.NewRows([]string{"logical_resource_id", "version_id"}).AddRow(9, 2))
	sqlMock.ExpectQuery("SELECT resource_payload_key").WillReturnRows(sqlmock.NewRows([]string{"resource_payload_key"}))
	sqlMock.ExpectQuery(`INSERT INTO "erased_resources"`).WillReturnRows(sqlmock.NewRows([]string{"erased_resource_id"}).AddRow(1))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT erase_resource($1, $2)")).
		WillReturnRows(sqlmock.NewRows([]string{"erase_resource"}).AddRow(-1))
	sqlMock.ExpectRollback()

	err := tm.Do(context.Background(), func(tx *txn.Tx) error {
		_, err := dao.Erase(tx, 7, erase.Request{ResourceType: "Patient", LogicalID: "p1"})
		return err
	})
	assert.ErrorIs(t, err, dberr.ErrCorruptSchema)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandleErase(t *testing.T) {
	f := newFixture(t, nil)
	f.withVersions(t, "p1", 3)
	app := fiber.New()
	require.NoError(t, erase.NewFeature(f.service, zap.NewNop()).Load(app))

	post := func(body string) int {
		req := httptest.NewRequest("POST", "/$erase", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}
	assert.Equal(t, 400, post(`{"resourceType":"Patient","logicalId":"p1","version":3}`))
	assert.Equal(t, 404, post(`{"resourceType":"Patient","logicalId":"nobody"}`))
	assert.Equal(t, 400, post(`{"resourceType":"Patient"}`))
	assert.Equal(t, 200, post(`{"resourceType":"Patient","logicalId":"p1"}`))

	resp, err := app.Test(httptest.NewRequest("GET", "/$erase/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/$erase/1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
