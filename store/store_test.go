package store

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/hashstore/index"
	"github.com/bitfsorg/hashstore/storage"
)

const hashX = "9dd4e461268c8034f5c8564e155c67a6" // md5("x")

// --- Helper functions ---

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := Open(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, root
}

func readIndexFile(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, index.FileName))
	require.NoError(t, err)
	return string(data)
}

func found(key, value string) Lookup {
	return Lookup{Key: key, Value: value, Status: Found}
}

func missing(key string) Lookup {
	return Lookup{Key: key, Status: NotFound}
}

// recordingFiles is a storage.Store that records deletes and can fail.
type recordingFiles struct {
	mu       sync.Mutex
	data     map[string][]byte
	deleted  []string
	writeErr error
	readErr  error
}

func newRecordingFiles() *recordingFiles {
	return &recordingFiles{data: make(map[string][]byte)}
}

func (r *recordingFiles) Write(hash string, contents []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.data[hash] = append([]byte(nil), contents...)
	return nil
}

func (r *recordingFiles) Read(hash string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	d, ok := r.data[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (r *recordingFiles) Delete(hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, hash)
	delete(r.data, hash)
	return nil
}

func (r *recordingFiles) Has(hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[hash]
	return ok, nil
}

func (r *recordingFiles) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for h := range r.data {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// --- Open tests ---

func TestOpen_RequiresAbsoluteRoot(t *testing.T) {
	for _, root := range []string{"", "relative/dir", "."} {
		_, err := Open(root)
		assert.ErrorIs(t, err, ErrInvalidRoot, "root %q", root)
	}
}

func TestOpen_UnsupportedHash(t *testing.T) {
	_, err := Open(t.TempDir(), WithHashAlgorithm("sha1"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedHash)
}

func TestOpen_UnknownIndexKind(t *testing.T) {
	_, err := Open(t.TempDir(), WithIndexKind("sqlite"))
	assert.ErrorIs(t, err, index.ErrUnknownKind)
}

func TestOpen_TouchesNothing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

// --- Scenario ---

func TestScenario_AddGetRemove(t *testing.T) {
	s, root := newTestStore(t)

	require.NoError(t, s.Add("x", "hello"))
	assert.Equal(t, `{"x":"`+hashX+`"}`, readIndexFile(t, root))

	content, err := os.ReadFile(filepath.Join(root, storage.CacheDirName, hashX))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("x", "hello")}, got)

	require.NoError(t, s.Remove("x"))
	assert.Equal(t, `{}`, readIndexFile(t, root))
	_, err = os.Stat(filepath.Join(root, storage.CacheDirName, hashX))
	assert.True(t, os.IsNotExist(err))

	got, err = s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{missing("x")}, got)
}

// --- Add tests ---

func TestAdd_RoundTripJoinsValues(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("b", "wow", "2"))
	require.NoError(t, s.Add("spaces", " lead", "trail ", ""))

	got, err := s.Get("b", "spaces")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("b", "wow 2"), found("spaces", " lead trail  ")}, got)
}

func TestAdd_MissingKeyOrValue(t *testing.T) {
	s, root := newTestStore(t)

	assert.ErrorIs(t, s.Add(""), ErrMissingKeyOrValue)
	assert.ErrorIs(t, s.Add("", "v"), ErrMissingKeyOrValue)
	assert.ErrorIs(t, s.Add("testKey"), ErrMissingKeyOrValue)

	// No files are created.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdd_Uniqueness(t *testing.T) {
	s, root := newTestStore(t)

	require.NoError(t, s.Add("k", "first"))
	indexBefore := readIndexFile(t, root)

	err := s.Add("k", "second")
	assert.ErrorIs(t, err, ErrKeyExists)

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("k", "first")}, got)
	assert.Equal(t, indexBefore, readIndexFile(t, root))
}

func TestAdd_UniquenessAcrossHandles(t *testing.T) {
	root := t.TempDir()

	s1, err := Open(root)
	require.NoError(t, err)
	require.NoError(t, s1.Add("k", "first"))
	require.NoError(t, s1.Close())

	s2, err := Open(root)
	require.NoError(t, err)
	defer s2.Close()
	assert.ErrorIs(t, s2.Add("k", "second"), ErrKeyExists)
}

func TestAdd_HashCollision(t *testing.T) {
	root := t.TempDir()
	// Another key already owns md5("x").
	require.NoError(t, os.WriteFile(filepath.Join(root, index.FileName),
		[]byte(`{"other":"`+hashX+`"}`), 0600))

	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	err = s.Add("x", "hello")
	assert.ErrorIs(t, err, ErrHashCollision)

	_, statErr := os.Stat(filepath.Join(root, storage.CacheDirName, hashX))
	assert.True(t, os.IsNotExist(statErr), "collision must not write content")
	assert.Equal(t, `{"other":"`+hashX+`"}`, readIndexFile(t, root))
}

func TestAdd_CorruptIndex(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, index.FileName), []byte("not json"), 0600))

	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Add("x", "hello"), index.ErrCorruptIndex)
	_, err = s.List()
	assert.ErrorIs(t, err, index.ErrCorruptIndex)
}

func TestAdd_ContentWriteFailurePropagates(t *testing.T) {
	root := t.TempDir()
	// A file where the cache directory should be makes every write fail.
	require.NoError(t, os.WriteFile(filepath.Join(root, storage.CacheDirName), []byte("x"), 0600))

	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	err = s.Add("x", "hello")
	assert.ErrorIs(t, err, storage.ErrIOFailure)
}

func TestAdd_NoRollbackOnFailure(t *testing.T) {
	files := newRecordingFiles()
	files.writeErr = errors.New("disk full")
	root := t.TempDir()
	s := New(files, index.New(index.NewJSONFile(root)))

	err := s.Add("x", "hello")
	assert.ErrorIs(t, err, files.writeErr)

	// The index flush ran concurrently and is left in place.
	assert.Equal(t, `{"x":"`+hashX+`"}`, readIndexFile(t, root))

	// The divergence reads as not found.
	files.writeErr = nil
	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{missing("x")}, got)
}

func TestAdd_Unicode(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("あ", "e"))
	require.NoError(t, s.Add("d", "ฟหดด"))

	got, err := s.Get("あ", "d")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("あ", "e"), found("d", "ฟหดด")}, got)
}

func TestAdd_InvalidUTF8Key(t *testing.T) {
	s, root := newTestStore(t)

	err := s.Add("bad\xffkey", "v")
	assert.ErrorIs(t, err, ErrInvalidKey)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected key must not write anything")
}

func TestInvalidUTF8Key_GetAndRemove(t *testing.T) {
	s, root := newTestStore(t)
	require.NoError(t, s.Add("good", "v"))
	indexBefore := readIndexFile(t, root)

	_, err := s.Get("good", "bad\xffkey")
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = s.Remove("good", "bad\xffkey")
	assert.ErrorIs(t, err, ErrInvalidKey)

	// Nothing was removed.
	assert.Equal(t, indexBefore, readIndexFile(t, root))
	got, err := s.Get("good")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("good", "v")}, got)
}

func TestKeysRoundTripAcrossReopen(t *testing.T) {
	root := t.TempDir()
	keys := []string{"あ", "<a&b>", "tab\there", `quote"and\slash`}

	s1, err := Open(root)
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, s1.Add(k, "v"))
	}
	require.NoError(t, s1.Close())

	s2, err := Open(root)
	require.NoError(t, err)
	defer s2.Close()

	for _, k := range keys {
		assert.ErrorIs(t, s2.Add(k, "again"), ErrKeyExists, "key %q", k)
	}
	require.NoError(t, s2.Remove(keys...))

	listed, err := s2.List()
	require.NoError(t, err)
	assert.Empty(t, listed)
}

// --- Get tests ---

func TestGet_NoKeys(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get()
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestGet_EmptyKey(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get("")
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = s.Get("a", "")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestGet_PartitionOrdering(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("p1", "one"))
	require.NoError(t, s.Add("p2", "two"))

	got, err := s.Get("absent1", "p2", "absent2", "p1")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{
		found("p2", "two"),
		found("p1", "one"),
		missing("absent1"),
		missing("absent2"),
	}, got)
}

func TestGet_PresentBeforeAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add("present", "v"))

	got, err := s.Get("absent", "present")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("present", "v"), missing("absent")}, got)
}

func TestGet_IgnoresIndex(t *testing.T) {
	files := newRecordingFiles()
	s := New(files, index.New(index.NewJSONFile(t.TempDir())))

	// Content without an index entry is still readable.
	require.NoError(t, files.Write(hashX, []byte("orphan")))

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("x", "orphan")}, got)
}

func TestGet_IOFailureAborts(t *testing.T) {
	files := newRecordingFiles()
	files.readErr = storage.ErrIOFailure
	s := New(files, index.New(index.NewJSONFile(t.TempDir())))

	_, err := s.Get("x", "y")
	assert.ErrorIs(t, err, storage.ErrIOFailure)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "found", Found.String())
	assert.Equal(t, "not found", NotFound.String())
}

// --- List tests ---

func TestList_Empty(t *testing.T) {
	s, root := newTestStore(t)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Listing does not persist the empty index.
	_, err = os.Stat(filepath.Join(root, index.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestList_ReflectsIndex(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("a", "1"))
	require.NoError(t, s.Add("b", "2"))
	require.NoError(t, s.Remove("a"))

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestList_InsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(k, "v"))
	}

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, keys)
}

// --- Remove tests ---

func TestRemove_NoKeys(t *testing.T) {
	s, _ := newTestStore(t)
	assert.ErrorIs(t, s.Remove(), ErrMissingKey)
}

func TestRemove_Idempotent(t *testing.T) {
	s, root := newTestStore(t)
	require.NoError(t, s.Add("keep", "v"))
	before := readIndexFile(t, root)

	require.NoError(t, s.Remove("random-crap"))
	require.NoError(t, s.Remove("random-crap"))

	assert.Equal(t, before, readIndexFile(t, root))
}

func TestRemove_Multiple(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add("a", "b"))
	require.NoError(t, s.Add("b", "c"))
	require.NoError(t, s.Add("d", "ฟหดด"))
	require.NoError(t, s.Add("あ", "e"))

	require.NoError(t, s.Remove("a", "あ"))

	got, err := s.Get("a", "あ")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{missing("a"), missing("あ")}, got)

	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, keys)
}

func TestRemove_DeletesContentForUnindexedKeys(t *testing.T) {
	files := newRecordingFiles()
	s := New(files, index.New(index.NewJSONFile(t.TempDir())))

	require.NoError(t, files.Write(hashX, []byte("orphan")))
	require.NoError(t, s.Remove("x", "never-added"))

	assert.Len(t, files.deleted, 2)
	assert.Contains(t, files.deleted, hashX)
	ok, err := files.Has(hashX)
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- Check tests ---

func TestCheck_Consistent(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add("a", "1"))

	report, err := s.Check()
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

func TestCheck_ReportsDivergence(t *testing.T) {
	s, root := newTestStore(t)

	require.NoError(t, s.Add("a", "1"))
	require.NoError(t, s.Add("b", "2"))

	hashA, err := storage.HashKey(storage.MD5, "a")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, storage.CacheDirName, hashA)))
	require.NoError(t, os.WriteFile(filepath.Join(root, storage.CacheDirName, hashX), []byte("stray"), 0600))

	report, err := s.Check()
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{"a"}, report.Missing)
	assert.Equal(t, []string{hashX}, report.Orphaned)

	// Check never repairs anything.
	_, err = os.Stat(filepath.Join(root, storage.CacheDirName, hashX))
	assert.NoError(t, err)
}

func TestCheck_MalformedIndexHash(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, index.FileName), []byte(`{"k":"NOT-A-HASH"}`), 0600))

	s, err := Open(root)
	require.NoError(t, err)
	defer s.Close()

	report, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, report.Missing)
}

// --- Backend / hash variants ---

func TestBoltIndex_SameBehaviour(t *testing.T) {
	s, root := newTestStore(t, WithIndexKind(index.KindBolt))

	require.NoError(t, s.Add("x", "hello"))
	require.NoError(t, s.Add("y", "world"))
	assert.ErrorIs(t, s.Add("x", "again"), ErrKeyExists)

	_, err := os.Stat(filepath.Join(root, index.BoltFileName))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, index.FileName))
	assert.True(t, os.IsNotExist(err), "bolt backend must not write the JSON index")

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, []Lookup{found("x", "hello")}, got)

	require.NoError(t, s.Remove("x"))
	keys, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, keys)
}

func TestBlake2bHash(t *testing.T) {
	s, root := newTestStore(t, WithHashAlgorithm(storage.BLAKE2b))

	require.NoError(t, s.Add("x", "hello"))

	content, err := os.ReadFile(filepath.Join(root, storage.CacheDirName, "442a44457137672b3218c1007dc8f76a"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, _ := newTestStore(t, WithLogger(logger))
	require.NoError(t, s.Add("x", "hello"))

	assert.Contains(t, buf.String(), "adding key")
	assert.Contains(t, buf.String(), hashX)
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	s, _ := newTestStore(t, WithLogger(nil))
	assert.NoError(t, s.Add("x", "hello"))
}
