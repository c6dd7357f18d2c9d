package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gmsas95/docscan/internal/app"
	"github.com/gmsas95/docscan/internal/export"
	"github.com/gmsas95/docscan/internal/ocr"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

// settleDelay lets a scanner or phone sync finish writing before the
// file is read
const settleDelay = 500 * time.Millisecond

// RunWatch scans every image dropped into a directory until ctx is done.
// Each image becomes its own one-item batch.
func RunWatch(ctx context.Context, args []string, application *app.App, out io.Writer) error {
	dir := "."
	save := true

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-d", "--dir":
			v, err := needValue(args, i)
			if err != nil {
				return err
			}
			dir = v
			i++
		case "--no-save":
			save = false
		case "-h", "--help":
			PrintWatchHelp(out)
			return nil
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	scanner, err := application.Scanner()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger := application.Logger.Named("watch")
	logger.Info("Watching for images", zap.String("dir", dir), zap.Bool("save", save))

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
	)

	process := func(path string) {
		defer wg.Done()

		mu.Lock()
		delete(pending, path)
		mu.Unlock()

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Failed to read image", zap.String("path", path), zap.Error(err))
			return
		}

		result, err := scanner.Scan(ctx, []ocr.Image{{Name: filepath.Base(path), Data: data}})
		if result == nil {
			logger.Error("Scan failed", zap.String("path", path), zap.Error(err))
			return
		}

		item := result.Items[0]
		if item.Err != nil {
			logger.Warn("Image not recognized", zap.String("path", path), zap.Error(item.Err))
		}

		if save && application.Store != nil {
			if _, err := application.Store.SaveResult(result, "watch"); err != nil {
				logger.Error("Failed to save scan", zap.String("path", path), zap.Error(err))
			}
		}

		if item.Record != nil {
			mu.Lock()
			fmt.Fprintln(out, export.FormatMessage(filepath.Base(path), result.Records()))
			fmt.Fprintln(out)
			mu.Unlock()
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for path, t := range pending {
				if t.Stop() {
					wg.Done()
				}
				delete(pending, path)
			}
			mu.Unlock()
			wg.Wait()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				wg.Wait()
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !imageExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				// a timer that already fired runs process once more
				if !t.Reset(settleDelay) {
					wg.Add(1)
				}
			} else {
				wg.Add(1)
				pending[path] = time.AfterFunc(settleDelay, func() { process(path) })
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				wg.Wait()
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}
