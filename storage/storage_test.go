package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"gallery-backend/config"
	"gallery-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), f.after)
	for i := range p[:n] {
		p[i] = 'x'
	}
	f.after -= n
	return n, nil
}

// strategies runs the shared contract against every backend
func strategies(t *testing.T) map[string]Storage {
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]Storage{
		"local":  local,
		"memory": NewMemoryStorage(0),
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	payload := []byte("\xFF\xD8\xFF\xE0 some jpeg bytes")

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.Upload(ctx, "Nature", "1-a.jpg", bytes.NewReader(payload))
			require.NoError(t, err)
			assert.Equal(t, int64(len(payload)), n)

			rc, size, err := s.Download(ctx, "Nature", "1-a.jpg")
			require.NoError(t, err)
			defer rc.Close()
			got, err := io.ReadAll(rc)
			require.NoError(t, err)

			assert.Equal(t, payload, got)
			assert.Equal(t, int64(len(payload)), size)
		})
	}
}

func TestStorage_DownloadMissing(t *testing.T) {
	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.Download(context.Background(), "Nature", "does-not-exist.jpg")
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestStorage_FailedUploadLeavesNothing(t *testing.T) {
	ctx := context.Background()

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Upload(ctx, "People", "2-b.png", &failingReader{after: 10})
			assert.ErrorIs(t, err, models.ErrWrite)

			_, _, err = s.Download(ctx, "People", "2-b.png")
			assert.ErrorIs(t, err, models.ErrNotFound)

			objects, err := s.List(ctx, "People")
			require.NoError(t, err)
			assert.Empty(t, objects)
		})
	}
}

func TestStorage_RefusesOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Upload(ctx, "Animals", "3-c.gif", strings.NewReader("first"))
			require.NoError(t, err)

			_, err = s.Upload(ctx, "Animals", "3-c.gif", strings.NewReader("second"))
			assert.ErrorIs(t, err, models.ErrWrite)

			rc, _, err := s.Download(ctx, "Animals", "3-c.gif")
			require.NoError(t, err)
			defer rc.Close()
			got, _ := io.ReadAll(rc)
			assert.Equal(t, "first", string(got))
		})
	}
}

func TestStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range [][2]string{
				{"Nature", "../escape.jpg"},
				{"..", "x.jpg"},
				{"Nature", `..\x.jpg`},
				{"", "x.jpg"},
			} {
				_, err := s.Upload(ctx, key[0], key[1], strings.NewReader("x"))
				assert.Error(t, err, "%v", key)
			}
		})
	}
}

func TestStorage_ListOrderAndDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			for _, f := range []string{"1-a.jpg", "2-b.jpg"} {
				_, err := s.Upload(ctx, "Architecture", f, strings.NewReader(f))
				require.NoError(t, err)
			}

			objects, err := s.List(ctx, "Architecture")
			require.NoError(t, err)
			require.Len(t, objects, 2)
			assert.Equal(t, "Architecture", objects[0].Category)
			assert.Equal(t, int64(len("1-a.jpg")), objects[0].Size)

			require.NoError(t, s.Delete(ctx, "Architecture", "1-a.jpg"))
			require.NoError(t, s.Delete(ctx, "Architecture", "1-a.jpg"), "deleting twice is fine")

			objects, err = s.List(ctx, "Architecture")
			require.NoError(t, err)
			require.Len(t, objects, 1)
			assert.Equal(t, "2-b.jpg", objects[0].Filename)

			empty, err := s.List(ctx, "Nature")
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)
		})
	}
}

func TestStorage_ConcurrentUploads(t *testing.T) {
	ctx := context.Background()
	const n = 32

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Upload(ctx, "Nature", GenerateFilename(".jpg"), strings.NewReader("img"))
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}

			objects, err := s.List(ctx, "Nature")
			require.NoError(t, err)
			assert.Len(t, objects, n)
		})
	}
}

func TestStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, s := range strategies(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Upload(ctx, "Nature", "9-z.jpg", strings.NewReader("data"))
			assert.ErrorIs(t, err, context.Canceled)

			_, _, err = s.Download(context.Background(), "Nature", "9-z.jpg")
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestGenerateFilename(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		name := GenerateFilename(".jpg")
		assert.True(t, strings.HasSuffix(name, ".jpg"))
		assert.NoError(t, checkSegment("filename", name))
		_, dup := seen[name]
		require.False(t, dup, "duplicate filename %s", name)
		seen[name] = struct{}{}
	}
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = NewStorage(config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
}

func TestLimitReader(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly at limit", func(t *testing.T) {
		data, err := io.ReadAll(LimitReader(ctx, bytes.NewReader(make([]byte, 100)), 100))
		require.NoError(t, err)
		assert.Len(t, data, 100)
	})

	t.Run("one byte over", func(t *testing.T) {
		_, err := io.ReadAll(LimitReader(ctx, bytes.NewReader(make([]byte, 101)), 100))
		assert.ErrorIs(t, err, models.ErrPayloadTooLarge)
	})

	t.Run("small reads", func(t *testing.T) {
		_, err := io.ReadAll(iotest.OneByteReader(LimitReader(ctx, bytes.NewReader(make([]byte, 11)), 10)))
		assert.ErrorIs(t, err, models.ErrPayloadTooLarge)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := io.ReadAll(LimitReader(cctx, bytes.NewReader(make([]byte, 5)), 10))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
