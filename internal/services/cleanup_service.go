package services

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/varunock/shareport/internal/config"
)

// CleanupService periodically removes shared files older than the configured
// expiry and scratch directories abandoned by interrupted chunk uploads.
type CleanupService struct {
	cfg  *config.Config
	stop chan struct{}
	done chan struct{}
}

// Scratch dirs untouched for this long are considered abandoned.
const scratchMaxAge = 24 * time.Hour

func NewCleanupService(cfg *config.Config) *CleanupService {
	return &CleanupService{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the sweeper goroutine. It is a no-op when file expiry is
// disabled.
func (s *CleanupService) Start() {
	if s.cfg.FileExpiry <= 0 {
		close(s.done)
		return
	}
	go s.run()
}

func (s *CleanupService) Stop() {
	close(s.stop)
	<-s.done
}

func (s *CleanupService) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Sweep runs one cleanup pass.
func (s *CleanupService) Sweep() {
	removed := s.sweepExpiredFiles()
	removed += s.sweepStaleScratch()
	if removed > 0 {
		log.Printf("cleanup: removed %d expired item(s)", removed)
	}
}

func (s *CleanupService) sweepExpiredFiles() int {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-s.cfg.FileExpiry)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.UploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("cleanup: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}

func (s *CleanupService) sweepStaleScratch() int {
	entries, err := os.ReadDir(s.cfg.TempDir())
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-scratchMaxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.TempDir(), entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("cleanup: failed to remove scratch %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}
