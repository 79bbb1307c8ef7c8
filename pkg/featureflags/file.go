package featureflags

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// fileFlags is the YAML document. Flags left out of the file fall back to
// the provider's fallback.
type fileFlags struct {
	RsvpPastEvents *bool `yaml:"rsvp_past_events"`
}

// FileProvider serves flags from a YAML file and reloads it whenever the file
// changes on disk:
//
//	rsvp_past_events: true
//
// A file that fails to parse is logged and the previous values are kept. A
// file that is removed or renamed away leaves every flag unset.
type FileProvider struct {
	path     string
	fallback Provider
	logger   *observability.Logger

	current atomic.Pointer[fileFlags]
	watcher *fsnotify.Watcher

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFileProvider loads path and starts watching it. fallback answers flags
// the file does not set; nil means EnvProvider.
func NewFileProvider(path string, fallback Provider, logger *observability.Logger) (*FileProvider, error) {
	if fallback == nil {
		fallback = EnvProvider{}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve flags file: %w", err)
	}

	p := &FileProvider{
		path:     abs,
		fallback: fallback,
		logger:   logger.WithComponent("featureflags").WithField("path", abs),
		done:     make(chan struct{}),
	}

	flags, err := readFlags(abs)
	if err != nil {
		return nil, err
	}
	p.current.Store(flags)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors and config management replace the file
	// rather than writing it in place.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	p.watcher = watcher

	p.wg.Add(1)
	go p.watch()

	return p, nil
}

// AllowRsvpPastEvents implements Provider.
func (p *FileProvider) AllowRsvpPastEvents(ctx context.Context) bool {
	if v := p.current.Load().RsvpPastEvents; v != nil {
		return *v
	}
	return p.fallback.AllowRsvpPastEvents(ctx)
}

// Close stops watching the file.
func (p *FileProvider) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	close(p.done)
	err := p.watcher.Close()
	p.wg.Wait()
	return err
}

func (p *FileProvider) watch() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			p.reload()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.WithError(err).Warn("Watcher error")
		}
	}
}

func (p *FileProvider) reload() {
	flags, err := readFlags(p.path)
	if err != nil {
		p.logger.WithError(err).Warn("Keeping previous feature flags")
		return
	}
	p.current.Store(flags)
	p.logger.WithField("rsvp_past_events", formatFlag(flags.RsvpPastEvents)).Info("Feature flags reloaded")
}

func readFlags(path string) (*fileFlags, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileFlags{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read flags file: %w", err)
	}

	var flags fileFlags
	if err := yaml.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("failed to parse flags file: %w", err)
	}
	return &flags, nil
}

func formatFlag(v *bool) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%t", *v)
}
