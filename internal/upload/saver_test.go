package upload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rohits-web03/mediadrop/internal/common"
	"github.com/rohits-web03/mediadrop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (p *fakePutter) PutObject(_ context.Context, key string, body []byte, contentType string) error {
	p.key, p.body, p.contentType = key, body, contentType
	return p.err
}

// bucket keeps every object it is given, keyed like a real store.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBucket() *bucket {
	return &bucket{objects: make(map[string][]byte)}
}

func (b *bucket) PutObject(_ context.Context, key string, body []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), body...)
	return nil
}

func TestSimulatedSaver(t *testing.T) {
	key, err := SimulatedSaver{}.Save(context.Background(), []byte("x"), Destination{ID: "1", Name: "a.png"})
	require.NoError(t, err)
	assert.Empty(t, key)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SimulatedSaver{Latency: time.Hour}.Save(ctx, nil, Destination{ID: "1", Name: "a.png"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadSaver_StagesCopy(t *testing.T) {
	out := NewOutbox()
	content := []byte("frame")

	key, err := DownloadSaver{Outbox: out}.Save(context.Background(), content, Destination{ID: "up-1", Name: "clip_1.png"})
	require.NoError(t, err)
	assert.Empty(t, key)
	content[0] = 'X'

	assert.Equal(t, []Download{{ID: "up-1", Name: "clip_1.png", ContentType: "image/png"}}, out.Pending())
	d, err := out.Take("up-1")
	require.NoError(t, err)
	assert.Equal(t, "frame", string(d.Content))
	assert.Equal(t, "image/png", d.ContentType)

	_, err = out.Take("up-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownloadSaver_SameNameKeepsBothFiles(t *testing.T) {
	e := newEnv(t)
	out := NewOutbox()
	c := e.controller(Options{RequireAuth: true, Saver: DownloadSaver{Outbox: out}})
	ctx := context.Background()
	_, err := c.Select(ctx, []models.FileHandle{img("a.png"), {Name: "a.png", Type: "image/png", Content: []byte("second")}})
	require.NoError(t, err)

	records, err := c.Save(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	pending := out.Pending()
	require.Len(t, pending, 2)
	first, err := out.Take(records[0].ID)
	require.NoError(t, err)
	second, err := out.Take(records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "a.png", first.Name)
	assert.Equal(t, "png:a.png", string(first.Content))
	assert.Equal(t, "second", string(second.Content))
}

func TestObjectSaver(t *testing.T) {
	p := &fakePutter{}
	key, err := ObjectSaver{Storage: p}.Save(context.Background(), []byte("img"), Destination{Owner: "u1", ID: "up-1", Name: "trip.png"})
	require.NoError(t, err)
	assert.Equal(t, "u1/up-1/trip.png", key)
	assert.Equal(t, key, p.key)
	assert.Equal(t, "image/png", p.contentType)

	p = &fakePutter{err: errors.New("403")}
	_, err = ObjectSaver{Storage: p}.Save(context.Background(), nil, Destination{ID: "up-2", Name: "noext"})
	assert.Error(t, err)
	assert.Equal(t, "application/octet-stream", p.contentType)
}

func TestObjectKey_StaysInsideUploadDirectory(t *testing.T) {
	cases := []struct {
		dst  Destination
		want string
	}{
		{Destination{Owner: "u1", ID: "up-1", Name: "a.png"}, "u1/up-1/a.png"},
		{Destination{ID: "up-1", Name: "a.png"}, "global/up-1/a.png"},
		{Destination{Owner: "u1", ID: "up-1", Name: "../../x_1.png"}, "u1/up-1/x_1.png"},
		{Destination{Owner: "u1", ID: "up-1", Name: "otherdir/name.png"}, "u1/up-1/name.png"},
		{Destination{Owner: "u1", ID: "up-1", Name: `..\evil.png`}, "u1/up-1/evil.png"},
		{Destination{Owner: "u1", ID: "up-1", Name: ".."}, "u1/up-1/file"},
		{Destination{Owner: "../u2", ID: "/", Name: "a.png"}, "u2/upload/a.png"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ObjectKey(tc.dst), tc.dst.Name)
	}
}

func TestObjectSaver_SameNameAcrossOwners(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.users.Create(ctx, models.User{ID: "u2", Email: "bo@example.com"}))
	b := newBucket()

	save := func(owner, content string) models.Upload {
		c := e.controller(Options{
			RequireAuth: true,
			Auth:        fakeAuth{user: &models.SessionUser{ID: owner}},
			Saver:       ObjectSaver{Storage: b},
		})
		_, err := c.Select(ctx, []models.FileHandle{{Name: "photo.jpg", Type: "image/jpeg", Content: []byte(content)}})
		require.NoError(t, err)
		records, err := c.Save(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		return records[0]
	}
	a := save("u1", "from u1")
	bo := save("u2", "from u2")

	assert.Equal(t, "photo.jpg", a.FileName)
	assert.Equal(t, "photo.jpg", bo.FileName)
	assert.NotEqual(t, a.StorageKey, bo.StorageKey)
	assert.Equal(t, "from u1", string(b.objects[a.StorageKey]))
	assert.Equal(t, "from u2", string(b.objects[bo.StorageKey]))

	history := e.history(t, "u1")
	require.Len(t, history, 1)
	assert.Equal(t, a.StorageKey, history[0].StorageKey)
}

func TestObjectSaver_SameNameWithinBatch(t *testing.T) {
	e := newEnv(t)
	b := newBucket()
	c := e.controller(Options{RequireAuth: true, Saver: ObjectSaver{Storage: b}, Concurrency: 2})
	ctx := context.Background()
	_, err := c.Select(ctx, []models.FileHandle{img("a.png"), {Name: "a.png", Type: "image/png", Content: []byte("second")}})
	require.NoError(t, err)

	records, err := c.Save(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, b.objects, 2)
	assert.Equal(t, "second", string(b.objects[records[1].StorageKey]))
}
