package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/pkg/ingest"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/pkg/scan"
)

var verbose bool

// Drains an inbox directory of bank statement files through the ingestion
// pipeline. One-shot by default; -watch keeps it running and picks up new
// arrivals as they land.
func main() {
	dir := flag.String("dir", "inbox", "directory holding statement files")
	watch := flag.Bool("watch", false, "keep watching for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	dryRun := flag.Bool("dry-run", false, "list candidate files, touch nothing")
	flag.BoolVar(&verbose, "verbose", false, "per-file logging")
	flag.Parse()

	files := pendingFiles(*dir)
	if *dryRun {
		log.Printf("dry-run: %d candidate file(s) in %s", len(files), *dir)
		for _, f := range files {
			log.Printf("  %s", f)
		}
		return
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN must be set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	svc := ingest.New(gdb, ledger.New(gdb, 0))

	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}

	queue := make(chan string, 256)
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range queue {
				ingestFile(*dir, name, svc)
			}
		}()
	}

	log.Printf("sweeping %d file(s) in %s with %d worker(s)", len(files), *dir, *workers)
	for _, f := range files {
		queue <- f
	}

	if !*watch {
		close(queue)
		wg.Wait()
		return
	}
	if err := watchInbox(*dir, queue); err != nil {
		log.Fatalf("watch %s: %v", *dir, err)
	}
}

// pendingFiles lists ingestible files in dir, sorted so sweeps are
// deterministic.
func pendingFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && ingestible(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// ingestible filters out partial transfers, dotfiles and unknown extensions.
func ingestible(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".md", ".markdown", ".txt":
		return true
	}
	return scannedImage(name)
}

func scannedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

// watchInbox feeds newly arrived files into queue. A file is queued only
// once it has gone quiet for settleDelay, so half-written transfers are
// not picked up mid-copy. Runs until the process is killed.
func watchInbox(dir string, queue chan<- string) error {
	const settleDelay = 300 * time.Millisecond

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("watching %s", dir)

	lastWrite := make(map[string]time.Time)
	settle := time.NewTicker(settleDelay / 2)
	defer settle.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if name := filepath.Base(ev.Name); ingestible(name) {
				lastWrite[name] = time.Now()
			}
		case <-settle.C:
			for name, t := range lastWrite {
				if time.Since(t) >= settleDelay {
					delete(lastWrite, name)
					queue <- name
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// ingestFile runs one file through the pipeline, then moves it into a
// done/ or failed/ sibling directory so repeated sweeps stay idempotent.
func ingestFile(dir, name string, svc *ingest.Service) {
	path := filepath.Join(dir, name)
	ctx := context.Background()

	var err error
	switch {
	case scannedImage(name):
		var text string
		if text, err = scan.ExtractText(path); err == nil {
			_, err = svc.ProcessScanned(ctx, name, text)
		}
	default:
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			_, err = svc.Process(ctx, name, data)
		}
	}

	outcome := "done"
	if err != nil {
		log.Printf("ingest %s: %v", name, err)
		outcome = "failed"
	} else if verbose {
		log.Printf("ingested %s", name)
	}
	dest := filepath.Join(dir, outcome)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		log.Printf("create %s: %v", dest, err)
		return
	}
	if err := os.Rename(path, filepath.Join(dest, name)); err != nil {
		log.Printf("move %s: %v", name, err)
	}
}
