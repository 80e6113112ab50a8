package commands

import (
	"fmt"

	"github.com/bryanchriswhite/tabscout/internal/ax/atspi"
	"github.com/bryanchriswhite/tabscout/internal/config"
	"github.com/bryanchriswhite/tabscout/internal/display"
	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/tracker"
)

// backend holds the platform connections behind a tracker
type backend struct {
	opts    tracker.Options
	closers []func()
}

// openBackend connects to the configured accessibility backend. live adds
// the AT-SPI event source so the tracker follows changes.
func openBackend(cfg config.Config, live bool) (*backend, error) {
	log := logger.WithComponent("backend")
	b := &backend{opts: tracker.Options{Config: cfg}}

	switch cfg.Backend {
	case config.BackendNone:
		log.Warn().Msg("No accessibility backend configured, the cache stays empty")
		headless := display.Headless{}
		b.opts.Placer, b.opts.Pointer, b.opts.Screens = headless, headless, headless
		return b, nil

	case config.BackendATSPI:
		platform, err := atspi.Connect()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the accessibility bus: %w", err)
		}
		b.closers = append(b.closers, func() { platform.Close() })
		b.opts.Platform = platform
		if live {
			b.opts.Source = atspi.NewSource(platform)
		}

		disp, err := display.NewManager()
		if err != nil {
			log.Warn().Err(err).Msg("X server unavailable, windows are placed on screen 0")
			headless := display.Headless{}
			b.opts.Placer, b.opts.Pointer, b.opts.Screens = headless, headless, headless
			return b, nil
		}
		b.closers = append(b.closers, disp.Close)
		b.opts.Placer, b.opts.Pointer, b.opts.Screens = disp, disp, disp
		return b, nil
	}
	return nil, fmt.Errorf("unknown backend: %s (use: %s, %s)", cfg.Backend, config.BackendATSPI, config.BackendNone)
}

// newTracker builds a tracker over the backend
func (b *backend) newTracker() *tracker.Manager {
	return tracker.New(b.opts)
}

// Close releases the connections in reverse order
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
