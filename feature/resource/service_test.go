package resource_test

import (
	"context"
	"errors"
	"testing"

	"resource-store/core/dberr"
	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/server"
	"resource-store/core/storage/mocks"
	"resource-store/feature/extract"
	"resource-store/feature/resource"

	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const mrnSystem = "urn:oid:1.2.36.146.595.217.0.1"

func patientJSON(id, mrn string) []byte {
	return []byte(`{"resourceType":"Patient","id":"` + id + `",` +
		`"meta":{"profile":["http://example.org/fhir/StructureDefinition/patient|1.0"]},` +
		`"identifier":[{"system":"` + mrnSystem + `","value":"` + mrn + `"}]}`)
}

func newService(t *testing.T, store *payload.Store) (*resource.Service, *metrics.Metrics) {
	t.Helper()
	f := newFixture(t)
	if store == nil {
		store = payload.NewStore(payload.Config{Compress: true}, nil, "", nil)
	}
	m := metrics.New(prometheus.NewRegistry())
	return resource.NewService(f.tm, f.dao, store, extract.MetaExtractor{}, m, zap.NewNop()), m
}

func TestService_PutReadSearch(t *testing.T) {
	ctx := context.Background()
	svc, m := newService(t, nil)

	res, err := svc.Put(ctx, "Patient", "p1", patientJSON("p1", "12345"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusCreated, res.Status)

	read, err := svc.Read(ctx, "Patient", "p1")
	require.NoError(t, err)
	assert.Equal(t, patientJSON("p1", "12345"), read.Data, "compressed payloads are decoded on read")

	ids, err := svc.SearchToken(ctx, "Patient", "identifier", mrnSystem, "12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	ids, err = svc.SearchProfile(ctx, "Patient", "http://example.org/fhir/StructureDefinition/patient")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	one := 1
	res, err = svc.Put(ctx, "Patient", "p1", patientJSON("p1", "67890"), &one, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.VersionID)

	_, err = svc.Put(ctx, "Patient", "p1", patientJSON("p1", "67890"), &one, nil)
	assert.ErrorIs(t, err, dberr.ErrVersionConflict, "If-Match on a stale version")

	ids, err = svc.SearchToken(ctx, "Patient", "identifier", mrnSystem, "12345")
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Writes.WithLabelValues("Patient", "C")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Writes.WithLabelValues("Patient", "U")))
}

func TestService_PutRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	_, err := svc.Put(ctx, "Patient", "p1", []byte("not json"), nil, nil)
	assert.ErrorIs(t, err, server.ErrBadRequest)

	_, err = svc.Put(ctx, "Patient", "p1", []byte{}, nil, nil)
	assert.ErrorIs(t, err, server.ErrBadRequest)

	_, err = svc.Put(ctx, "Observation", "p1", patientJSON("p1", "1"), nil, nil)
	assert.ErrorIs(t, err, server.ErrBadRequest, "payload type must match")

	_, err = svc.Put(ctx, "../etc", "p1", patientJSON("p1", "1"), nil, nil)
	assert.ErrorIs(t, err, server.ErrBadRequest)
}

func TestService_DeleteAndVRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	_, err := svc.Put(ctx, "Patient", "p1", patientJSON("p1", "1"), nil, nil)
	require.NoError(t, err)

	del, err := svc.Delete(ctx, "Patient", "p1")
	require.NoError(t, err)
	assert.Equal(t, resource.StatusDeleted, del.Status)
	assert.Equal(t, 2, del.VersionID)

	again, err := svc.Delete(ctx, "Patient", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.VersionID, "deleting a deleted resource writes nothing")

	cur, err := svc.Read(ctx, "Patient", "p1")
	require.NoError(t, err)
	assert.True(t, cur.Deleted)

	v1, err := svc.VRead(ctx, "Patient", "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, patientJSON("p1", "1"), v1.Data)

	hist, err := svc.History(ctx, "Patient", "p1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Deleted)

	_, err = svc.Delete(ctx, "Patient", "nobody")
	assert.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestService_OffloadedPayloadCleanup(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	store := payload.NewStore(payload.Config{OffloadThreshold: 1}, client, "payloads", nil)
	svc, _ := newService(t, store)

	var keys []string
	client.On("PutObject", ctx, "payloads", mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { keys = append(keys, args.String(2)) }).
		Return(minio.UploadInfo{}, nil)

	zero := 0
	_, err := svc.Put(ctx, "Patient", "p1", patientJSON("p1", "1"), nil, &zero)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	client.On("RemoveObjects", ctx, "payloads", mock.Anything).Return(nil).Once()
	res, err := svc.Put(ctx, "Patient", "p1", patientJSON("p1", "1"), nil, &zero)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusIfNoneMatchExisted, res.Status)
	require.Len(t, keys, 2)
	client.AssertCalled(t, "RemoveObjects", ctx, "payloads", []string{keys[1]})

	five := 5
	client.On("RemoveObjects", ctx, "payloads", mock.Anything).Return(nil).Once()
	_, err = svc.Put(ctx, "Patient", "p1", patientJSON("p1", "1"), &five, nil)
	var conflict *dberr.VersionConflictError
	require.True(t, errors.As(err, &conflict))
	client.AssertCalled(t, "RemoveObjects", ctx, "payloads", []string{keys[2]})
}
