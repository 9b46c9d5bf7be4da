// Package selection holds the expressed attribute and recomputes the
// coordinated map and chart whenever it changes.
package selection

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/view"
)

// ErrUnknownAttribute is returned when selecting a key that is not a
// selectable catalog attribute.
var ErrUnknownAttribute = eris.New("selection: unknown attribute")

// Selection outcomes reported to the Recorder.
const (
	ResultOK           = "ok"
	ResultUnknown      = "unknown_attribute"
	ResultInsufficient = "insufficient_data"
	ResultError        = "error"
)

// Recorder receives selection telemetry.
type Recorder interface {
	ObserveSelection(attribute, result string, elapsed time.Duration)
	SetRevision(rev uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSelection(string, string, time.Duration) {}
func (nopRecorder) SetRevision(uint64)                             {}

// Options configures a Controller.
type Options struct {
	Classify classify.Options
	Layout   view.Layout
	Recorder Recorder
}

// Controller is the single owner of selection state. All reads and writes
// go through its mutex, so the newest successful selection always wins.
type Controller struct {
	mu      sync.Mutex
	in      view.Input
	opts    Options
	current view.View
	rev     uint64
	subs    map[*subscriber]struct{}
}

// New computes the initial view for the first selectable attribute.
func New(in view.Input, opts Options) (*Controller, error) {
	if in.Catalog == nil || in.Catalog.Len() == 0 {
		return nil, eris.New("selection: empty catalog")
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Layout == (view.Layout{}) {
		opts.Layout = view.DefaultLayout()
	}
	c := &Controller{
		in:   in,
		opts: opts,
		subs: make(map[*subscriber]struct{}),
	}
	first := in.Catalog.First().Key
	if _, err := c.Select(first); err != nil {
		return nil, eris.Wrapf(err, "selection: initial attribute %s", first)
	}
	return c, nil
}

// Select makes attribute the expressed attribute and returns the new view.
// On error the previous state is kept.
func (c *Controller) Select(attribute string) (view.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.compute(c.in, attribute, c.opts.Recorder)
	if err != nil {
		return view.View{}, err
	}
	c.commit(v)
	zap.L().Debug("selection: attribute selected",
		zap.String("attribute", attribute),
		zap.Uint64("revision", v.Revision),
	)
	return v, nil
}

// Current returns the latest view.
func (c *Controller) Current() view.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Expressed returns the current attribute key.
func (c *Controller) Expressed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Attribute.Key
}

// Input returns the data views are computed from.
func (c *Controller) Input() view.Input {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in
}

// View computes the view for attribute without changing the selection.
// The returned view carries revision 0 and is not recorded as a selection.
func (c *Controller) View(attribute string) (view.View, error) {
	c.mu.Lock()
	in := c.in
	c.mu.Unlock()

	v, err := c.compute(in, attribute, nopRecorder{})
	if err != nil {
		return view.View{}, err
	}
	return v, nil
}

// Replace swaps in reloaded data and recomputes the expressed attribute.
// When the new data cannot be classified the old data is kept.
func (c *Controller) Replace(in view.Input) (view.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attribute := c.current.Attribute.Key
	if _, ok := in.Catalog.Lookup(attribute); !ok {
		attribute = in.Catalog.First().Key
	}
	v, err := c.compute(in, attribute, c.opts.Recorder)
	if err != nil {
		return view.View{}, eris.Wrap(err, "selection: replace dataset")
	}
	c.in = in
	c.commit(v)
	zap.L().Info("selection: dataset replaced",
		zap.String("attribute", attribute),
		zap.Uint64("revision", v.Revision),
		zap.Int("rows", len(in.Rows)),
		zap.Int("features", len(in.Features)),
	)
	return v, nil
}

func (c *Controller) compute(in view.Input, attribute string, rec Recorder) (view.View, error) {
	if _, ok := in.Catalog.Lookup(attribute); !ok {
		rec.ObserveSelection(attribute, ResultUnknown, 0)
		return view.View{}, eris.Wrapf(ErrUnknownAttribute, "%q", attribute)
	}

	start := time.Now()
	scale, err := classify.BuildColorScale(in.Rows, attribute, c.opts.Classify)
	elapsed := time.Since(start)
	if err != nil {
		result := ResultError
		if eris.Is(err, classify.ErrInsufficientData) {
			result = ResultInsufficient
		}
		rec.ObserveSelection(attribute, result, elapsed)
		return view.View{}, err
	}
	rec.ObserveSelection(attribute, ResultOK, elapsed)
	return view.Build(in, scale, attribute, c.opts.Layout), nil
}

// commit must be called with c.mu held.
func (c *Controller) commit(v view.View) {
	c.rev++
	v.Revision = c.rev
	c.current = v
	c.opts.Recorder.SetRevision(c.rev)
	for s := range c.subs {
		s.deliver(v)
	}
}
