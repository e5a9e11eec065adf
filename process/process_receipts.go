package main

import (
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
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/francivaldo-alves/gestao-financeira/models"
	"github.com/francivaldo-alves/gestao-financeira/pkg/receipt"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	dryRun  bool
)

var scanner = receipt.NewScanner()

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// preload caches
type preloadState struct {
	uploadsByFile map[string]*models.Upload
	mu            sync.RWMutex
}

func newPreloadState() *preloadState {
	return &preloadState{uploadsByFile: make(map[string]*models.Upload, 1024)}
}

func (ps *preloadState) getUpload(name string) (*models.Upload, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	u, ok := ps.uploadsByFile[name]
	return u, ok
}

func (ps *preloadState) putUpload(u *models.Upload) {
	ps.mu.Lock()
	ps.uploadsByFile[u.FileName] = u
	ps.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of receipt images, runs the extraction pipeline and
// creates Upload + Transaction rows idempotently; optional watch mode.
func main() {
	dirFlag := flag.String("dir", "uploads/receipts", "directory to scan for receipt images")
	userID := flag.Uint("user-id", 0, "User ID to assign records to (if omitted attempts admin)")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip all DB writes; just scan files and print extractions")
	flag.Parse()

	if dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dirFlag)
		files := listImageFiles(*dirFlag)
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			rec, err := scanner.Scan(filepath.Join(*dirFlag, f))
			if err != nil {
				log.Printf("FAIL %s: %v", f, err)
				continue
			}
			log.Printf("OK %s amount=%s date=%s desc=%q cat=%s pay=%s", f, rec.Amount, rec.Date, rec.Description, rec.Category, rec.PaymentMethod)
		}
		return
	}

	db = mustInitDBFromEnv()
	user := resolveUser(*userID)
	ps := preloadAll(user)
	log.Printf("Preloaded: uploads=%d", len(ps.uploadsByFile))

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, user, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, user, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// preloadAll fetches existing uploads to minimize per-file queries.
func preloadAll(user models.User) *preloadState {
	ps := newPreloadState()
	var ups []models.Upload
	if err := db.Where("user_id = ?", user.ID).Find(&ups).Error; err == nil {
		for i := range ups {
			u := ups[i]
			ps.uploadsByFile[u.FileName] = &u
		}
	}
	return ps
}

// resolveUser finds the target user either by explicit id or the admin user.
func resolveUser(id uint) models.User {
	var u models.User
	if id != 0 {
		if err := db.First(&u, id).Error; err != nil {
			log.Fatalf("failed to find user id %d: %v", id, err)
		}
		return u
	}
	if err := db.Where("username = ?", "admin").First(&u).Error; err != nil {
		log.Fatalf("no --user-id provided and admin user not found: %v", err)
	}
	return u
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := extMime[ext]
	return ok
}

func mimeFromExt(name string) string {
	return extMime[strings.ToLower(filepath.Ext(name))]
}

func watchDirectory(dir string, user models.User, ps *preloadState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go runWorkerPool(dir, user, ps, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, user models.User, ps *preloadState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, user, ps)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile runs the pipeline over one file and creates Upload and
// Transaction rows, skipping files already ingested.
func processSingleFile(dir, name string, user models.User, ps *preloadState) {
	filePath := filepath.Join(dir, name)

	if up, ok := ps.getUpload(name); ok && (up.TransactionID != nil || up.Failed) {
		logV("SKIP already processed %s", name)
		return
	}

	rec, err := scanner.Scan(filePath)
	up := models.Upload{
		UserID:      user.ID,
		FileName:    name,
		StorePath:   filePath,
		ContentType: mimeFromExt(name),
	}
	if err != nil {
		up.Failed = true
		up.FailedReason = err.Error()
		if dbErr := db.Create(&up).Error; dbErr != nil {
			log.Printf("ERROR create failed-upload %s: %v", name, dbErr)
			return
		}
		ps.putUpload(&up)
		log.Printf("FAIL %s: %v", name, err)
		return
	}
	up.Amount = rec.Amount
	up.Date = rec.Date
	up.Description = rec.Description
	up.QRDetected = rec.QRDetected

	if rec.Amount == "" {
		// Nothing billable recovered; record the upload for manual review.
		if dbErr := db.Create(&up).Error; dbErr != nil {
			log.Printf("ERROR create upload %s: %v", name, dbErr)
			return
		}
		ps.putUpload(&up)
		logV("NO AMOUNT %s", name)
		return
	}

	amt, err := decimal.NewFromString(rec.Amount)
	if err != nil || !amt.IsPositive() {
		log.Printf("WARN unparseable amount %q for %s", rec.Amount, name)
		return
	}
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		date = time.Now()
	}
	tx := models.Transaction{
		UserID:        user.ID,
		Description:   rec.Description,
		Amount:        amt,
		Type:          "expense",
		Category:      rec.Category,
		PaymentMethod: rec.PaymentMethod,
		Date:          date,
	}
	if err := db.Create(&tx).Error; err != nil {
		log.Printf("ERROR create transaction %s: %v", name, err)
		return
	}
	up.TransactionID = &tx.ID
	if err := db.Create(&up).Error; err != nil {
		log.Printf("ERROR create upload %s: %v", name, err)
		return
	}
	ps.putUpload(&up)
	log.Printf("NEW transaction id=%d file=%s amount=%s", tx.ID, name, rec.Amount)
}
