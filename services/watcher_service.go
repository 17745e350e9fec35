package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"docchat/models"
)

// DropWatcher feeds files dropped into a local directory through the same
// ingestion pipeline as HTTP uploads. Optional; enabled by configuration.
type DropWatcher struct {
	ragService RAGService
}

func NewDropWatcher(ragService RAGService) *DropWatcher {
	return &DropWatcher{ragService: ragService}
}

// Watch blocks until the context is cancelled, ingesting supported files as
// they appear or change in dirPath. Editors often write via temp file and
// rename, so Create and Write are handled the same.
func (w *DropWatcher) Watch(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: File dropped: %s. Ingesting...", event.Name)
					w.ingestFile(ctx, event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching drop directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

func (w *DropWatcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("WATCHER ERROR: Could not read %s: %v", path, err)
		return
	}
	report, err := w.ragService.IngestDocument(ctx, models.Document{
		Filename: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to ingest %s: %v", path, err)
		return
	}
	log.Printf("WATCHER: Ingested %s: %d chunks, %d indexed", path, report.Chunks, report.Indexed)
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".txt":
		return true
	default:
		return false
	}
}
