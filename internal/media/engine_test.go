package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/ports"
)

// fakeFetcher отдает заранее заданную последовательность исходов и
// записывает файл при успехе.
type fakeFetcher struct {
	errs  []error // исход каждой попытки по порядку; nil — успех
	calls int
	paths []string
}

func (f *fakeFetcher) Download(_ context.Context, _ *domain.MediaRef, path string, progress func(percent int)) error {
	idx := f.calls
	f.calls++
	f.paths = append(f.paths, path)

	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	if err != nil {
		return err
	}
	if progress != nil {
		progress(50)
		progress(100)
	}
	return os.WriteFile(path, []byte("payload"), 0o644)
}

func newTestEngine(t *testing.T, fetcher Fetcher, cfg Config) (*Engine, *[]time.Duration) {
	t.Helper()
	waits := &[]time.Duration{}
	e := NewEngine(fetcher, t.TempDir(), cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSleep(func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		}),
	)
	return e, waits
}

func photoMsg(id int64, size int64) *domain.SourceMessage {
	return &domain.SourceMessage{ID: id, Media: &domain.MediaRef{Photo: true, DeclaredSize: size}}
}

func TestEngine_Fetch_Success(t *testing.T) {
	fetcher := &fakeFetcher{}
	e, waits := newTestEngine(t, fetcher, Config{MaxRetries: 5, RetryDelay: 3 * time.Second, MediaDelay: 1500 * time.Millisecond})

	item, err := e.Fetch(context.Background(), photoMsg(5, 100), nil)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, domain.MediaPhoto, item.Kind)
	assert.Equal(t, "media/photo/photo_5.jpg", item.Path)
	assert.Equal(t, 1, fetcher.calls)
	// После завершающей попытки выдерживается пауза между медиа.
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, *waits)
}

func TestEngine_Fetch_RetriesTransientErrors(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{ports.ErrTimeout, ports.ErrTimeout, nil}}
	e, waits := newTestEngine(t, fetcher, Config{MaxRetries: 5, RetryDelay: 3 * time.Second, MediaDelay: time.Second})

	item, err := e.Fetch(context.Background(), photoMsg(7, 0), nil)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, 3, fetcher.calls)
	// Линейный обратный отсчет: база × номер попытки, затем пауза.
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second, time.Second}, *waits)
}

func TestEngine_Fetch_FloodWaitHintWins(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{&ports.FloodWaitError{Wait: 30 * time.Second}, nil}}
	e, waits := newTestEngine(t, fetcher, Config{MaxRetries: 5, RetryDelay: 3 * time.Second})

	_, err := e.Fetch(context.Background(), photoMsg(1, 0), nil)
	require.NoError(t, err)

	// Подсказка сервера (30с) больше расчетной задержки (3с) и выигрывает.
	require.NotEmpty(t, *waits)
	assert.Equal(t, 30*time.Second, (*waits)[0])
}

func TestEngine_Fetch_ExhaustedAttempts(t *testing.T) {
	transient := &ports.FloodWaitError{Wait: time.Second}
	fetcher := &fakeFetcher{errs: []error{transient, transient, transient}}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 3, RetryDelay: time.Second, MediaDelay: time.Second})

	item, err := e.Fetch(context.Background(), photoMsg(9, 0), nil)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 3, fetcher.calls)
}

func TestEngine_Fetch_PermanentErrorStopsRetries(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{errors.New("FILE_REFERENCE_EXPIRED")}}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 5, RetryDelay: time.Second})

	item, err := e.Fetch(context.Background(), photoMsg(2, 0), nil)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEngine_Fetch_SizeGate(t *testing.T) {
	fetcher := &fakeFetcher{}
	e, waits := newTestEngine(t, fetcher, Config{MaxRetries: 5, MaxFileSize: 50 * 1024 * 1024, MediaDelay: time.Second})

	item, err := e.Fetch(context.Background(), photoMsg(3, 60*1024*1024), nil)
	require.NoError(t, err)

	assert.Nil(t, item)
	// Ни одной сетевой попытки и ни одной паузы: отсечение до скачивания.
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, *waits)
}

func TestEngine_Fetch_NoMedia(t *testing.T) {
	fetcher := &fakeFetcher{}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 1})

	item, err := e.Fetch(context.Background(), &domain.SourceMessage{ID: 4}, nil)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Zero(t, fetcher.calls)
}

func TestEngine_Fetch_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{errs: []error{ctx.Err()}}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 5, RetryDelay: time.Second})

	_, err := e.Fetch(ctx, photoMsg(6, 0), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEngine_Fetch_CollisionCounter(t *testing.T) {
	fetcher := &fakeFetcher{}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 1})

	ctx := context.Background()
	msg := photoMsg(5, 0)

	first, err := e.Fetch(ctx, msg, nil)
	require.NoError(t, err)
	second, err := e.Fetch(ctx, msg, nil)
	require.NoError(t, err)
	third, err := e.Fetch(ctx, msg, nil)
	require.NoError(t, err)

	assert.Equal(t, "media/photo/photo_5.jpg", first.Path)
	assert.Equal(t, "media/photo/photo_5_1.jpg", second.Path)
	assert.Equal(t, "media/photo/photo_5_2.jpg", third.Path)
}

func TestEngine_Fetch_ReclassifiesByActualExtension(t *testing.T) {
	// Документ с MIME application/mp4 сначала классифицируется как документ,
	// но фактическое расширение mp4 переводит файл в каталог видео.
	fetcher := &fakeFetcher{}
	e, _ := newTestEngine(t, fetcher, Config{MaxRetries: 1})

	msg := &domain.SourceMessage{
		ID:    8,
		Media: &domain.MediaRef{Document: true, MimeType: "application/mp4", FileName: "clip.mp4"},
	}

	item, err := e.Fetch(context.Background(), msg, nil)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, domain.MediaVideo, item.Kind)
	assert.Equal(t, "media/video/clip.mp4", item.Path)
	// Файл физически перенесен из каталога документов.
	assert.FileExists(t, filepath.Join(e.mediaDir, "video", "clip.mp4"))
	assert.NoFileExists(t, filepath.Join(e.mediaDir, "document", "clip.mp4"))
}

func TestEngine_ProgressMonotonic(t *testing.T) {
	var reported []int
	report := monotonic(func(p int) { reported = append(reported, p) })
	for _, p := range []int{10, 5, 10, 40, 40, 100} {
		report(p)
	}
	assert.Equal(t, []int{10, 40, 100}, reported)
}
