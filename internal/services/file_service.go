package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/varunock/shareport/internal/config"
	"github.com/varunock/shareport/internal/models"
	"github.com/varunock/shareport/internal/utils"
)

// FileService owns every interaction with the shared folder: whole and
// chunked uploads, listing, download resolution and deletion. Chunks are
// staged under <shared>/.temp/<name>/chunk_<i> and concatenated in index
// order once all of them arrived.
type FileService struct {
	cfg *config.Config

	// locks serializes chunk-write-and-finalize per target filename, so a
	// retransmitted final chunk cannot race a running finalization.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// finalMu covers the check-and-create window when resolving a
	// collision-safe final name. Uploads under different name locks can
	// resolve to the same free slot (a whole "report.pdf" landing on
	// report_1.pdf while a chunked "report_1.pdf" finalizes).
	finalMu sync.Mutex
}

func NewFileService(cfg *config.Config) *FileService {
	return &FileService{
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *FileService) nameLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// prepareName validates a client-supplied filename and reduces it to a safe
// shared-folder name. The extension check runs on the original name, before
// sanitizing can alter it.
func (s *FileService) prepareName(original string) (string, error) {
	if strings.TrimSpace(original) == "" {
		return "", ErrEmptyFilename
	}
	if !s.cfg.ExtensionAllowed(original) {
		return "", ErrExtensionNotAllowed
	}
	name := utils.SanitizeFilename(original)
	if name == "" {
		return "", ErrInvalidFilename
	}
	return name, nil
}

// SaveWhole writes a complete payload into the shared folder under a
// collision-safe name derived from the client filename.
func (s *FileService) SaveWhole(original string, r io.Reader) (models.UploadResult, error) {
	name, err := s.prepareName(original)
	if err != nil {
		return models.UploadResult{}, err
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to create shared folder: %w", err)
	}

	finalName, out, err := s.createFinal(name)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("upload failed: %w", err)
	}
	finalPath := filepath.Join(s.cfg.UploadDir, finalName)

	size, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		os.Remove(finalPath)
		return models.UploadResult{}, fmt.Errorf("upload failed: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(finalPath)
		return models.UploadResult{}, fmt.Errorf("upload failed: %w", err)
	}

	return models.UploadResult{Final: true, Filename: finalName, Size: size}, nil
}

// SaveChunk stores one numbered chunk. When the write completes the set of
// indices 0..total-1, the chunks are reassembled into the shared folder and
// the scratch directory is removed. Intermediate chunks return a non-final
// result without touching the shared folder.
func (s *FileService) SaveChunk(original string, index, total int, r io.Reader) (models.UploadResult, error) {
	name, err := s.prepareName(original)
	if err != nil {
		return models.UploadResult{}, err
	}
	if total <= 0 || index < 0 || index >= total {
		return models.UploadResult{}, fmt.Errorf("%w: chunk %d of %d", ErrInvalidChunk, index, total)
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	scratch := filepath.Join(s.cfg.TempDir(), name)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	chunkPath := filepath.Join(scratch, fmt.Sprintf("chunk_%d", index))
	if _, err := writeFile(chunkPath, r); err != nil {
		os.Remove(chunkPath)
		return models.UploadResult{}, fmt.Errorf("failed to store chunk %d: %w", index, err)
	}

	if !allChunksPresent(scratch, total) {
		return models.UploadResult{Final: false}, nil
	}

	finalName, size, err := s.reassemble(name, scratch, total)
	if err != nil {
		// No partial output may survive a failed reassembly.
		os.RemoveAll(scratch)
		s.removeTempRootIfEmpty()
		return models.UploadResult{}, err
	}

	os.RemoveAll(scratch)
	s.removeTempRootIfEmpty()
	return models.UploadResult{Final: true, Filename: finalName, Size: size}, nil
}

// reassemble concatenates chunk files in index order into a collision-safe
// final name. The partial output file is removed on any failure.
func (s *FileService) reassemble(name, scratch string, total int) (string, int64, error) {
	finalName, out, err := s.createFinal(name)
	if err != nil {
		return "", 0, fmt.Errorf("reassembly failed: %w", err)
	}
	finalPath := filepath.Join(s.cfg.UploadDir, finalName)

	var size int64
	for i := 0; i < total; i++ {
		n, err := appendChunk(out, filepath.Join(scratch, fmt.Sprintf("chunk_%d", i)))
		if err != nil {
			out.Close()
			os.Remove(finalPath)
			return "", 0, fmt.Errorf("reassembly failed at chunk %d: %w", i, err)
		}
		size += n
	}

	if err := out.Close(); err != nil {
		os.Remove(finalPath)
		return "", 0, fmt.Errorf("reassembly failed: %w", err)
	}
	return finalName, size, nil
}

// List returns shared-folder files newest-first. A missing folder yields an
// empty list.
func (s *FileService) List() ([]models.FileInfo, error) {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read shared folder: %w", err)
	}

	files := make([]models.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().Unix(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Modified != files[j].Modified {
			return files[i].Modified > files[j].Modified
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Resolve maps a client-supplied name to an absolute path inside the shared
// folder. Names that sanitize away or point outside the folder are treated
// as missing files.
func (s *FileService) Resolve(name string) (string, error) {
	clean := utils.SanitizeFilename(name)
	if clean == "" {
		return "", ErrNotFound
	}

	path := filepath.Join(s.cfg.UploadDir, clean)
	rel, err := filepath.Rel(s.cfg.UploadDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrNotFound
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// Delete removes a file from the shared folder.
func (s *FileService) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// createFinal reserves a collision-safe name in the shared folder, appending
// _1, _2, ... before the extension until a slot is free, and returns the
// opened file. Creating with O_EXCL under finalMu makes the existence check
// and the claim atomic across uploads holding different per-name locks.
func (s *FileService) createFinal(name string) (string, *os.File, error) {
	s.finalMu.Lock()
	defer s.finalMu.Unlock()

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for counter := 1; ; counter++ {
		path := filepath.Join(s.cfg.UploadDir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return candidate, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
		candidate = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
}

func (s *FileService) removeTempRootIfEmpty() {
	// Fails while other uploads hold scratch dirs, which is fine.
	os.Remove(s.cfg.TempDir())
}

func allChunksPresent(scratch string, total int) bool {
	for i := 0; i < total; i++ {
		if _, err := os.Stat(filepath.Join(scratch, fmt.Sprintf("chunk_%d", i))); err != nil {
			return false
		}
	}
	return true
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}

func appendChunk(out *os.File, chunkPath string) (int64, error) {
	in, err := os.Open(chunkPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(out, in)
}
