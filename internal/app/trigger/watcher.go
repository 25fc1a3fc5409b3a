package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/usecase"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// InputFileParameter is the job parameter carrying the name of the changed file.
const InputFileParameter = "input.file"

// DefaultDebounce is how long a file must stay quiet before the job is launched.
const DefaultDebounce = 500 * time.Millisecond

// Watcher starts a job whenever a file in a directory is created or written.
// The file's base name is passed as the input.file parameter, and launches are serialized.
type Watcher struct {
	operator usecase.JobOperator
	jobName  string
	dir      string
	pattern  string
	debounce time.Duration

	launchMu sync.Mutex
}

// NewWatcher creates a Watcher on dir. Only base names matching pattern (filepath.Match syntax,
// empty for any) trigger a launch.
func NewWatcher(operator usecase.JobOperator, jobName, dir, pattern string) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("bad watch directory %q: %w", dir, err)
	}
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
	}
	return &Watcher{
		operator: operator,
		jobName:  jobName,
		dir:      absDir,
		pattern:  pattern,
		debounce: DefaultDebounce,
	}, nil
}

// WithDebounce sets the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", w.dir, err)
	}
	logger.Infof("Watcher: watching '%s' for job '%s'.", w.dir, w.jobName)

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Watcher: stopped watching '%s'.", w.dir)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if !w.matches(name) {
				continue
			}
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(w.debounce, func() { w.launch(ctx, name) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Watcher: error: %v", err)
		}
	}
}

func (w *Watcher) matches(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if w.pattern == "" {
		return true
	}
	ok, _ := filepath.Match(w.pattern, name)
	return ok
}

func (w *Watcher) launch(ctx context.Context, name string) {
	w.launchMu.Lock()
	defer w.launchMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	params := model.NewJobParameters()
	params.Put(InputFileParameter, name)
	logger.Infof("Watcher: file '%s' changed, launching job '%s'.", name, w.jobName)

	execution, err := w.operator.Start(ctx, w.jobName, params)
	if err != nil {
		logger.Errorf("Watcher: failed to launch job '%s' for '%s': %v", w.jobName, name, err)
		return
	}
	logger.Infof("Watcher: job '%s' (Execution ID: %s) finished with status %s.", w.jobName, execution.ID, execution.Status)
}
