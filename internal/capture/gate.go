package capture

import (
	"context"
	"sync"
)

// Gate enforces one live capture attempt per key. A second contender's Open
// fails with ErrDeviceBusy instead of stealing the device mid-capture.
type Gate struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{held: make(map[string]struct{})}
}

// Wrap returns an Opener whose attempts contend on key. The claim is released
// when the returned device is closed.
func (g *Gate) Wrap(key string, inner Opener) Opener {
	return OpenerFunc(func(ctx context.Context) (Device, <-chan Event, error) {
		g.mu.Lock()
		if _, ok := g.held[key]; ok {
			g.mu.Unlock()
			return nil, nil, ErrDeviceBusy
		}
		g.held[key] = struct{}{}
		g.mu.Unlock()

		dev, events, err := inner.Open(ctx)
		if err != nil {
			g.release(key)
			return nil, nil, err
		}
		gd := &gatedDevice{Device: dev}
		gd.release = func() { g.release(key) }
		return gd, events, nil
	})
}

func (g *Gate) release(key string) {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
}

// Held reports whether an attempt currently holds the device for key.
func (g *Gate) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

// Active reports how many keys currently hold a device.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

type gatedDevice struct {
	Device
	once    sync.Once
	release func()
}

func (d *gatedDevice) Close() error {
	err := d.Device.Close()
	d.once.Do(d.release)
	return err
}
