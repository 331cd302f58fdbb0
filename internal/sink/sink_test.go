package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/headline-goat/sigtable/internal/testutil"
	"github.com/headline-goat/sigtable/internal/ttable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSinkIncumbent(t *testing.T) {
	s := testutil.SetupTestStore(t)
	sink := NewStoreSink(s, "http://localhost:8080/")
	ctx := context.Background()

	n, found, err := sink.Incumbent(ctx, "Engagement")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, n)

	testutil.SeedPublished(t, s, "Engagement", 4)

	n, found, err = sink.Incumbent(ctx, "Engagement")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, n)
}

func TestStoreSinkPublish(t *testing.T) {
	s := testutil.SetupTestStore(t)
	sink := NewStoreSink(s, "http://localhost:8080/")
	sink.SetRunID("run-7")
	ctx := context.Background()

	table := &ttable.Table{Title: "Daily Retention", Rows: testutil.Rows("Retention", 2)}
	ref, err := sink.Publish(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/tables/Daily%20Retention", ref)

	pt, err := s.GetPublished(ctx, "Daily Retention")
	require.NoError(t, err)
	assert.Equal(t, 2, pt.RowCount)
	assert.Equal(t, "run-7", pt.RunID)
	assert.Equal(t, ref, pt.Reference)

	payload, err := ttable.DecodePayload(pt.Payload)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, payload.Rows)
	assert.Equal(t, ttable.Columns(), payload.Columns)
}

type memObjects struct {
	objects map[string][]byte
	readErr error
}

type memWriter struct {
	bytes.Buffer
	name string
	m    *memObjects
}

func (w *memWriter) Close() error {
	w.m.objects[w.name] = w.Bytes()
	return nil
}

func (m *memObjects) NewReader(_ context.Context, name string) (io.ReadCloser, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.objects[name]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) NewWriter(_ context.Context, name string) io.WriteCloser {
	return &memWriter{name: name, m: m}
}

func TestGCSSinkObjectName(t *testing.T) {
	sink := NewObjectSink(&memObjects{}, "bucket", "experiments", "exp-42")

	assert.Equal(t, "experiments/exp-42_Engagement.json", sink.ObjectName("Engagement"))
	assert.Equal(t, "experiments/exp-42_a-b.json", sink.ObjectName("a/b"))
}

func TestGCSSinkPublishAndIncumbent(t *testing.T) {
	objects := &memObjects{objects: make(map[string][]byte)}
	sink := NewObjectSink(objects, "bucket", "experiments", "exp-42")
	ctx := context.Background()

	_, found, err := sink.Incumbent(ctx, "Engagement")
	require.NoError(t, err)
	assert.False(t, found)

	ref, err := sink.Publish(ctx, &ttable.Table{Title: "Engagement", Rows: testutil.Rows("Click", 3)})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/bucket/experiments/exp-42_Engagement.json", ref)
	assert.Contains(t, objects.objects, "experiments/exp-42_Engagement.json")

	n, found, err := sink.Incumbent(ctx, "Engagement")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, n)

	assert.NoError(t, sink.Close())
}

func TestGCSSinkReadFailure(t *testing.T) {
	boom := errors.New("boom")
	sink := NewObjectSink(&memObjects{readErr: boom}, "bucket", "", "exp")

	_, _, err := sink.Incumbent(context.Background(), "t")
	assert.ErrorIs(t, err, boom)
}

func TestGCSSinkCorruptObject(t *testing.T) {
	objects := &memObjects{objects: map[string][]byte{"exp_t.json": []byte("not json")}}
	sink := NewObjectSink(objects, "bucket", "", "exp")

	_, _, err := sink.Incumbent(context.Background(), "t")
	assert.Error(t, err)
}
