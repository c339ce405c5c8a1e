// Package dashboard fetches the precomputed stock analytics and renders
// each view into its region of an output surface.
package dashboard

import (
	"context"
	"fmt"
	"sync"
)

// Dashboard holds the four view loaders, in page order.
type Dashboard struct {
	loaders []Loader
	byName  map[string]Loader
}

func New(deps Deps) *Dashboard {
	d := &Dashboard{byName: make(map[string]Loader)}
	for _, l := range []Loader{
		NewAutoTrends(deps),
		NewMomentum(deps),
		NewHighLow(deps),
		NewMovingAverage(deps),
	} {
		d.loaders = append(d.loaders, l)
		d.byName[l.Name()] = l
	}
	return d
}

// Names returns the view names in page order.
func (d *Dashboard) Names() []string {
	names := make([]string, 0, len(d.loaders))
	for _, l := range d.loaders {
		names = append(names, l.Name())
	}
	return names
}

func (d *Dashboard) Loader(name string) (Loader, bool) {
	l, ok := d.byName[name]
	return l, ok
}

// Load runs a single view.
func (d *Dashboard) Load(ctx context.Context, name string) error {
	l, ok := d.byName[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	l.Load(ctx)
	return nil
}

// LoadAll runs every view concurrently and waits for all of them.
func (d *Dashboard) LoadAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range d.loaders {
		wg.Add(1)
		go func(l Loader) {
			defer wg.Done()
			l.Load(ctx)
		}(l)
	}
	wg.Wait()
}
