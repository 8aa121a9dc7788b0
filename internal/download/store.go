package download

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	hsync "github.com/hbomb79/Hermes/pkg/sync"
)

var (
	ErrDownloadNotFound = errors.New("no download found")
	ErrDownloadTerminal = errors.New("download is already in a terminal state")
)

// Store is the process-wide record of every download, keyed by their ID. It is
// explicitly owned by whoever constructs it and injected into the services
// that need it; there is no package-level instance.
//
// Reads are lock-free. Mutations take the store mutex, and replace the stored
// value with a fresh copy, so a concurrently-read snapshot is never observed
// mid-write. Each download owns a disjoint key; there are no cross-key
// transactions.
//
// Entries are never removed; the store is in-memory only and growth over
// the process lifetime is accepted. Disk reclamation is the janitor's job,
// not the store's.
type Store struct {
	mu        sync.Mutex
	downloads hsync.TypedSyncMap[uuid.UUID, *Download]
}

func NewStore() *Store {
	return &Store{}
}

// Register inserts a newly submitted download. An error is returned if the
// ID is already present, which would mean a UUID collision.
func (store *Store) Register(download *Download) error {
	if _, loaded := store.downloads.LoadOrStore(download.ID, download); loaded {
		return fmt.Errorf("download with ID %s already registered", download.ID)
	}

	return nil
}

// Get returns a snapshot of the download with the ID provided, or nil if no
// such download is known.
func (store *Store) Get(id uuid.UUID) *Download {
	download, ok := store.downloads.Load(id)
	if !ok {
		return nil
	}

	return snapshot(download)
}

// All returns a snapshot of every download known to the store. Ordering
// is unspecified.
func (store *Store) All() []*Download {
	downloads := make([]*Download, 0)
	store.downloads.Range(func(_ uuid.UUID, download *Download) bool {
		downloads = append(downloads, snapshot(download))
		return true
	})

	return downloads
}

// Progress returns the current progress indicator for the ID provided.
// Unknown IDs report zero, they are NOT an error; a submitted download is
// always distinguishable from an unknown one because submission writes a
// non-zero placeholder.
func (store *Store) Progress(id uuid.UUID) float64 {
	download, ok := store.downloads.Load(id)
	if !ok {
		return 0
	}

	return download.Progress
}

// Result returns the retrieval descriptor for the ID provided, or nil if the
// download is unknown or has not (yet) completed successfully.
func (store *Store) Result(id uuid.UUID) *Artifact {
	download, ok := store.downloads.Load(id)
	if !ok || download.Result == nil {
		return nil
	}

	artifact := *download.Result
	return &artifact
}

// SetProgress records a progress sample from yt-dlp against the
// download provided. Writes against unknown IDs, or downloads which have
// already reached a terminal state, are silently ignored.
func (store *Store) SetProgress(id uuid.UUID, percent float64) {
	store.mu.Lock()
	defer store.mu.Unlock()

	download, ok := store.downloads.Load(id)
	if !ok || download.Status.terminal() {
		return
	}

	next := snapshot(download)
	next.Progress = percent
	next.UpdatedAt = time.Now()
	store.downloads.Store(id, next)
}

// Start transitions the download from SUBMITTED to RUNNING.
func (store *Store) Start(id uuid.UUID) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	download, ok := store.downloads.Load(id)
	if !ok {
		return ErrDownloadNotFound
	} else if download.Status != SUBMITTED {
		return fmt.Errorf("cannot start download %s in status %s", id, download.Status)
	}

	next := snapshot(download)
	next.Status = RUNNING
	next.UpdatedAt = time.Now()
	store.downloads.Store(id, next)
	return nil
}

// Complete transitions the download to its successful terminal state,
// recording the artifact provided and forcing progress to exactly 100
// regardless of the last value yt-dlp reported. The result is
// written exactly once; completing an already-terminal download is an error.
func (store *Store) Complete(id uuid.UUID, artifact Artifact) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	download, ok := store.downloads.Load(id)
	if !ok {
		return ErrDownloadNotFound
	} else if download.Status.terminal() {
		return ErrDownloadTerminal
	}

	next := snapshot(download)
	next.Status = COMPLETED
	next.Progress = 100
	next.Result = &artifact
	next.UpdatedAt = time.Now()
	store.downloads.Store(id, next)
	return nil
}

// Fail transitions the download to its failed terminal state, setting the
// failure sentinel. No result is ever recorded for a failed download. Note
// that a download which yt-dlp reported 100% for may still fail here if
// its artifact could not be resolved or relocated afterwards.
func (store *Store) Fail(id uuid.UUID) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	download, ok := store.downloads.Load(id)
	if !ok {
		return ErrDownloadNotFound
	} else if download.Status.terminal() {
		return ErrDownloadTerminal
	}

	next := snapshot(download)
	next.Status = FAILED
	next.Progress = ProgressFailed
	next.UpdatedAt = time.Now()
	store.downloads.Store(id, next)
	return nil
}

// snapshot copies the download (and its result descriptor) so that callers
// can never mutate the store's view of it.
func snapshot(download *Download) *Download {
	copied := *download
	if download.Result != nil {
		artifact := *download.Result
		copied.Result = &artifact
	}

	return &copied
}
