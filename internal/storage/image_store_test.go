// internal/storage/image_store_test.go
package storage

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/models"
)

func newStore(t *testing.T, mode string) (*ImageStore, *FileStorage) {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return NewImageStore(fs, mode), fs
}

func slideCount(t *testing.T, fs *FileStorage) int {
	t.Helper()
	files, err := fs.List(IsSlideImage)
	require.NoError(t, err)
	return len(files)
}

func age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestPutSameIndexWritesOnce(t *testing.T) {
	store, fs := newStore(t, KeyByPosition)
	data := []byte("<svg>pizza</svg>")

	first, written, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	assert.True(t, written)

	second, written, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, first.FilePath, second.FilePath)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, slideCount(t, fs))
}

func TestPutDifferentIndexPositionMode(t *testing.T) {
	store, fs := newStore(t, KeyByPosition)
	data := []byte("<svg>same</svg>")

	a, _, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	b, _, err := store.Put(data, 1, models.ImageFormatSVG)
	require.NoError(t, err)

	assert.NotEqual(t, a.FilePath, b.FilePath)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, slideCount(t, fs))
}

func TestPutDifferentIndexContentMode(t *testing.T) {
	store, fs := newStore(t, KeyByContent)
	data := []byte("<svg>same</svg>")

	a, _, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	b, written, err := store.Put(data, 1, models.ImageFormatSVG)
	require.NoError(t, err)

	assert.False(t, written)
	assert.Equal(t, a.FilePath, b.FilePath)
	assert.Equal(t, 1, slideCount(t, fs))
}

func TestConcurrentPutSingleWrite(t *testing.T) {
	store, fs := newStore(t, KeyByPosition)
	data := []byte("\x89PNG fake")

	var wg sync.WaitGroup
	var mu sync.Mutex
	writes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, written, err := store.Put(data, 3, models.ImageFormatPNG)
			assert.NoError(t, err)
			if written {
				mu.Lock()
				writes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, slideCount(t, fs))
}

func TestSweepInvalidatesIndex(t *testing.T) {
	store, fs := newStore(t, KeyByPosition)
	data := []byte("<svg>old</svg>")

	img, _, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	store.Release(img)
	age(t, img.FilePath, 48*time.Hour)

	fresh, _, err := store.Put([]byte("<svg>new</svg>"), 1, models.ImageFormatSVG)
	require.NoError(t, err)
	store.Release(fresh)

	require.NoError(t, fs.WriteFile("lesson.html", []byte("keep")))

	res, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CleanedCount)
	assert.Equal(t, int64(len(data)), res.TotalSize)

	_, ok := store.Lookup(data, 0)
	assert.False(t, ok, "swept image must leave the index")
	assert.True(t, fs.Exists("lesson.html"))

	// 再次获取会重新写入，而不是返回失效路径
	again, written, err := store.Put(data, 0, models.ImageFormatSVG)
	require.NoError(t, err)
	assert.True(t, written)
	assert.FileExists(t, again.FilePath)
}

func TestSweepSkipsPinnedImages(t *testing.T) {
	store, _ := newStore(t, KeyByPosition)
	img, _, err := store.Put([]byte("<svg>pinned</svg>"), 0, models.ImageFormatSVG)
	require.NoError(t, err)
	age(t, img.FilePath, 48*time.Hour)

	res, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.CleanedCount)
	assert.FileExists(t, img.FilePath)

	store.Release(img)
	res, err = store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CleanedCount)
}

func TestSweepRemovesUnindexedLeftovers(t *testing.T) {
	store, fs := newStore(t, KeyByPosition)
	require.NoError(t, fs.WriteFile("slide_2_deadbeef.jpg", []byte("jpeg")))
	age(t, fs.Path("slide_2_deadbeef.jpg"), 25*time.Hour)

	res, err := store.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CleanedCount)
	assert.Equal(t, int64(4), res.TotalSize)
}

func TestStatsAndClear(t *testing.T) {
	store, _ := newStore(t, KeyByPosition)
	old, _, err := store.Put([]byte("<svg>a</svg>"), 0, models.ImageFormatSVG)
	require.NoError(t, err)
	age(t, old.FilePath, time.Hour)
	newer, _, err := store.Put([]byte("<svg>bb</svg>"), 1, models.ImageFormatSVG)
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, old.Size+newer.Size, stats.TotalSize)
	assert.Equal(t, "0.00", stats.TotalSizeMB)
	assert.Contains(t, newer.FilePath, stats.Files[0].Name)

	assert.Zero(t, store.Clear(), "pinned entries survive a clear")
	store.Release(old, newer)
	assert.Equal(t, 2, store.Clear())
	assert.Zero(t, store.Len())
}
