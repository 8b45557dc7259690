package source

import (
	"fmt"
	"io"

	"github.com/banshee-data/irtrace/internal/capture"
	"github.com/banshee-data/irtrace/internal/pulse"
)

// CaptureSource replays a session recorded in a capture database. An empty
// session ID selects the most recent session.
type CaptureSource struct {
	path    string
	session string

	store   *capture.Store
	samples []pulse.Sample
	next    int
}

func NewCaptureSource(path, session string) *CaptureSource {
	return &CaptureSource{path: path, session: session}
}

func (c *CaptureSource) String() string { return c.path }

func (c *CaptureSource) Init() error {
	store, err := capture.OpenExisting(c.path)
	if err != nil {
		return fmt.Errorf("error opening capture %s: %w", c.path, err)
	}
	if c.session == "" {
		latest, err := store.LatestSession()
		if err != nil {
			store.Close()
			return fmt.Errorf("%s: %w", c.path, err)
		}
		c.session = latest.ID
	}
	samples, err := store.Samples(c.session)
	if err != nil {
		store.Close()
		return fmt.Errorf("%s: %w", c.path, err)
	}
	c.store = store
	c.samples = samples
	return nil
}

// Session is the ID of the session being replayed.
func (c *CaptureSource) Session() string { return c.session }

func (c *CaptureSource) Mode() ReceiveMode  { return ModeMode2 }
func (c *CaptureSource) CodeLength() uint32 { return 0 }

func (c *CaptureSource) ReadSample() (pulse.Sample, error) {
	if c.next >= len(c.samples) {
		return pulse.Sample{}, io.EOF
	}
	s := c.samples[c.next]
	c.next++
	return s, nil
}

func (c *CaptureSource) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
