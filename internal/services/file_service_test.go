package services

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varunock/shareport/internal/config"
)

func fileTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		UploadDir: t.TempDir(),
		AllowedExtensions: map[string]struct{}{
			"pdf": {}, "txt": {}, "mp4": {}, "jpg": {},
		},
	}
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func TestSaveWhole(t *testing.T) {
	t.Run("writes file and reports size", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)
		payload := randomBytes(t, 2048)

		result, err := svc.SaveWhole("report.pdf", bytes.NewReader(payload))
		require.NoError(t, err)
		assert.True(t, result.Final)
		assert.Equal(t, "report.pdf", result.Filename)
		assert.Equal(t, int64(2048), result.Size)

		got, err := os.ReadFile(filepath.Join(cfg.UploadDir, "report.pdf"))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("duplicate names get numeric suffixes", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)
		first := randomBytes(t, 100)
		second := randomBytes(t, 200)

		r1, err := svc.SaveWhole("report.pdf", bytes.NewReader(first))
		require.NoError(t, err)
		r2, err := svc.SaveWhole("report.pdf", bytes.NewReader(second))
		require.NoError(t, err)
		r3, err := svc.SaveWhole("report.pdf", bytes.NewReader(second))
		require.NoError(t, err)

		assert.Equal(t, "report.pdf", r1.Filename)
		assert.Equal(t, "report_1.pdf", r2.Filename)
		assert.Equal(t, "report_2.pdf", r3.Filename)
		assert.Equal(t, int64(100), r1.Size)
		assert.Equal(t, int64(200), r2.Size)

		for _, name := range []string{"report.pdf", "report_1.pdf", "report_2.pdf"} {
			_, err := os.Stat(filepath.Join(cfg.UploadDir, name))
			assert.NoError(t, err)
		}
	})

	t.Run("disallowed extension rejected with no side effects", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		_, err := svc.SaveWhole("malware.exe", bytes.NewReader([]byte("nope")))
		assert.ErrorIs(t, err, ErrExtensionNotAllowed)

		entries, readErr := os.ReadDir(cfg.UploadDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries)
	})

	t.Run("empty filename rejected", func(t *testing.T) {
		svc := NewFileService(fileTestConfig(t))
		_, err := svc.SaveWhole("   ", bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrEmptyFilename)
	})

	t.Run("concurrent colliding uploads claim distinct names", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		// "report.pdf" and "report_1.pdf" hold different per-name locks
		// yet compete for the same suffix slots.
		names := []string{"report.pdf", "report_1.pdf"}
		const perName = 4

		var wg sync.WaitGroup
		for _, name := range names {
			for i := 0; i < perName; i++ {
				wg.Add(1)
				go func(name string) {
					defer wg.Done()
					_, err := svc.SaveWhole(name, bytes.NewReader([]byte("payload")))
					assert.NoError(t, err)
				}(name)
			}
		}
		wg.Wait()

		files, err := svc.List()
		require.NoError(t, err)
		require.Len(t, files, len(names)*perName)
		for _, f := range files {
			assert.Equal(t, int64(len("payload")), f.Size)
		}
	})

	t.Run("path traversal is confined to the shared folder", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		result, err := svc.SaveWhole("../../escape.txt", bytes.NewReader([]byte("x")))
		require.NoError(t, err)
		assert.Equal(t, "escape.txt", result.Filename)

		_, err = os.Stat(filepath.Join(cfg.UploadDir, "escape.txt"))
		assert.NoError(t, err)
	})
}

func TestSaveChunk(t *testing.T) {
	t.Run("three chunks reassemble byte-identically", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		chunks := [][]byte{
			randomBytes(t, 1024*1024),
			randomBytes(t, 1024*1024),
			randomBytes(t, 512*1024),
		}

		for i, chunk := range chunks {
			result, err := svc.SaveChunk("video.mp4", i, 3, bytes.NewReader(chunk))
			require.NoError(t, err)
			if i < 2 {
				assert.False(t, result.Final, "chunk %d must not finalize", i)
			} else {
				assert.True(t, result.Final)
				assert.Equal(t, "video.mp4", result.Filename)
				assert.Equal(t, int64(2*1024*1024+512*1024), result.Size)
			}
		}

		got, err := os.ReadFile(filepath.Join(cfg.UploadDir, "video.mp4"))
		require.NoError(t, err)
		assert.Equal(t, bytes.Join(chunks, nil), got)

		_, err = os.Stat(filepath.Join(cfg.TempDir(), "video.mp4"))
		assert.True(t, os.IsNotExist(err), "scratch directory must be removed")
		_, err = os.Stat(cfg.TempDir())
		assert.True(t, os.IsNotExist(err), "empty temp root must be removed")
	})

	t.Run("out-of-order chunks finalize only once all arrived", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		parts := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}

		// The last-indexed chunk arriving first must not trigger
		// reassembly of a partial file.
		result, err := svc.SaveChunk("doc.txt", 2, 3, bytes.NewReader(parts[2]))
		require.NoError(t, err)
		assert.False(t, result.Final)

		result, err = svc.SaveChunk("doc.txt", 0, 3, bytes.NewReader(parts[0]))
		require.NoError(t, err)
		assert.False(t, result.Final)

		result, err = svc.SaveChunk("doc.txt", 1, 3, bytes.NewReader(parts[1]))
		require.NoError(t, err)
		assert.True(t, result.Final)

		got, err := os.ReadFile(filepath.Join(cfg.UploadDir, "doc.txt"))
		require.NoError(t, err)
		assert.Equal(t, []byte("aaabbbccc"), got)
	})

	t.Run("reassembled file gets a collision-safe name", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		_, err := svc.SaveWhole("doc.txt", bytes.NewReader([]byte("existing")))
		require.NoError(t, err)

		_, err = svc.SaveChunk("doc.txt", 0, 2, bytes.NewReader([]byte("one")))
		require.NoError(t, err)
		result, err := svc.SaveChunk("doc.txt", 1, 2, bytes.NewReader([]byte("two")))
		require.NoError(t, err)
		assert.Equal(t, "doc_1.txt", result.Filename)

		got, err := os.ReadFile(filepath.Join(cfg.UploadDir, "doc_1.txt"))
		require.NoError(t, err)
		assert.Equal(t, []byte("onetwo"), got)
	})

	t.Run("failed reassembly leaves no partial state", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		_, err := svc.SaveChunk("broken.txt", 0, 2, bytes.NewReader([]byte("first")))
		require.NoError(t, err)

		// A directory in the chunk's place passes the completeness stat
		// but fails the concatenation read, forcing the error path.
		scratch := filepath.Join(cfg.TempDir(), "broken.txt")
		require.NoError(t, os.Mkdir(filepath.Join(scratch, "chunk_1"), 0o755))

		_, err = svc.SaveChunk("broken.txt", 0, 2, bytes.NewReader([]byte("first")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reassembly failed")

		// No partial output in the shared folder, no scratch left behind.
		entries, readErr := os.ReadDir(cfg.UploadDir)
		require.NoError(t, readErr)
		assert.Empty(t, entries)
		_, statErr := os.Stat(scratch)
		assert.True(t, os.IsNotExist(statErr))
		_, statErr = os.Stat(cfg.TempDir())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("invalid chunk parameters rejected", func(t *testing.T) {
		svc := NewFileService(fileTestConfig(t))

		_, err := svc.SaveChunk("doc.txt", -1, 3, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrInvalidChunk)
		_, err = svc.SaveChunk("doc.txt", 3, 3, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrInvalidChunk)
		_, err = svc.SaveChunk("doc.txt", 0, 0, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrInvalidChunk)
	})

	t.Run("disallowed extension never reaches scratch", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		_, err := svc.SaveChunk("virus.exe", 0, 2, bytes.NewReader([]byte("x")))
		assert.ErrorIs(t, err, ErrExtensionNotAllowed)
		_, statErr := os.Stat(cfg.TempDir())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("concurrent chunk uploads of different files", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		var wg sync.WaitGroup
		for f := 0; f < 4; f++ {
			wg.Add(1)
			go func(f int) {
				defer wg.Done()
				name := fmt.Sprintf("file%d.txt", f)
				for i := 0; i < 3; i++ {
					_, err := svc.SaveChunk(name, i, 3, bytes.NewReader([]byte{byte('0' + f)}))
					assert.NoError(t, err)
				}
			}(f)
		}
		wg.Wait()

		files, err := svc.List()
		require.NoError(t, err)
		assert.Len(t, files, 4)
	})
}

func TestList(t *testing.T) {
	t.Run("missing folder yields empty list", func(t *testing.T) {
		cfg := fileTestConfig(t)
		cfg.UploadDir = filepath.Join(cfg.UploadDir, "does-not-exist")
		svc := NewFileService(cfg)

		files, err := svc.List()
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("ordered newest first and skips scratch", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		older := filepath.Join(cfg.UploadDir, "older.txt")
		newer := filepath.Join(cfg.UploadDir, "newer.txt")
		require.NoError(t, os.WriteFile(older, []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(newer, []byte("new"), 0o644))
		now := time.Now()
		require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
		require.NoError(t, os.Chtimes(newer, now, now))

		// A pending chunk upload must not show up in listings.
		_, err := svc.SaveChunk("pending.txt", 0, 2, bytes.NewReader([]byte("x")))
		require.NoError(t, err)

		files, err := svc.List()
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "newer.txt", files[0].Name)
		assert.Equal(t, "older.txt", files[1].Name)
		assert.Equal(t, int64(3), files[0].Size)
	})
}

func TestDelete(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		svc := NewFileService(fileTestConfig(t))
		assert.ErrorIs(t, svc.Delete("nope.txt"), ErrNotFound)
	})

	t.Run("removes file from listing", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		_, err := svc.SaveWhole("gone.txt", bytes.NewReader([]byte("bye")))
		require.NoError(t, err)

		require.NoError(t, svc.Delete("gone.txt"))

		files, err := svc.List()
		require.NoError(t, err)
		assert.Empty(t, files)
		assert.ErrorIs(t, svc.Delete("gone.txt"), ErrNotFound)
	})

	t.Run("traversal names cannot reach outside", func(t *testing.T) {
		cfg := fileTestConfig(t)
		svc := NewFileService(cfg)

		outside := filepath.Join(filepath.Dir(cfg.UploadDir), "outside.txt")
		require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

		assert.ErrorIs(t, svc.Delete("../outside.txt"), ErrNotFound)
		_, err := os.Stat(outside)
		assert.NoError(t, err)
	})
}

func TestResolve(t *testing.T) {
	cfg := fileTestConfig(t)
	svc := NewFileService(cfg)

	_, err := svc.SaveWhole("found.txt", bytes.NewReader([]byte("hi")))
	require.NoError(t, err)

	path, err := svc.Resolve("found.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.UploadDir, "found.txt"), path)

	_, err = svc.Resolve("missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// Directories are not downloadable.
	require.NoError(t, os.Mkdir(filepath.Join(cfg.UploadDir, "subdir.txt"), 0o755))
	_, err = svc.Resolve("subdir.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}
