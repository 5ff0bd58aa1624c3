package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	"github.com/Yulian302/lfusys-renewal-map/geo"
	"github.com/Yulian302/lfusys-renewal-map/services"
	stypes "github.com/Yulian302/lfusys-renewal-map/services/types"
)

type Screen int

const (
	LoginNeeded Screen = iota
	BindNeeded
	ZonesLoading
	MainReady
)

func (s Screen) String() string {
	switch s {
	case LoginNeeded:
		return "login"
	case BindNeeded:
		return "bind"
	case ZonesLoading:
		return "loading"
	case MainReady:
		return "main"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Session is what the orchestrator reads from the session manager.
type Session interface {
	Profile() types.UserProfile
	Subscribe() <-chan types.UserProfile
}

// Location is what the orchestrator reads from the geolocation acquirer.
type Location interface {
	Acquire(ctx context.Context) error
	Request(ctx context.Context) (string, error)
	Status() geo.Status
	Subscribe() <-chan geo.Status
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Screen  Screen
	Profile types.UserProfile

	Zones        []stypes.RenewalZone
	ZonesLoading bool

	Stops         []stypes.NearbyItem
	FilteredStops []stypes.NearbyItem
	SearchQuery   string

	Point          geo.GeoPoint
	Source         geo.Source
	HasLocation    bool
	LocationDenied bool

	ActiveStop            *stypes.NearbyItem
	ShowUserLocationPopup bool
	PopupRefresh          int

	// Message is the last instruction for the user, e.g. how to re-enable
	// location access.
	Message string
}

type Orchestrator struct {
	session   Session
	location  Location
	zones     services.ZoneService
	nearby    services.NearbyService
	directory string
	logger    *slog.Logger

	profiles <-chan types.UserProfile
	statuses <-chan geo.Status

	mu      sync.Mutex
	profile types.UserProfile
	status  geo.Status

	zoneList     []stypes.RenewalZone
	zonesLoading bool
	zonesFetched bool
	zoneGen      uint64

	geoStarted  bool
	stops       []stypes.NearbyItem
	nearbyGen   uint64
	nearbyPoint *geo.GeoPoint

	query   string
	active  *stypes.NearbyItem
	popup   bool
	refresh int
	message string

	// inflight counts background fetches and acquisitions. It is guarded
	// by mu and idle is signalled when it drops to zero.
	inflight int
	idle     *sync.Cond
	stopped  bool

	changes chan Snapshot
}

type Option func(*Orchestrator)

func WithDirectory(dir string) Option {
	return func(o *Orchestrator) { o.directory = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func New(session Session, location Location, zones services.ZoneService, nearby services.NearbyService, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:   session,
		location:  location,
		zones:     zones,
		nearby:    nearby,
		directory: services.DefaultDirectory,
		logger:    slog.Default(),
		changes:   make(chan Snapshot, 1),
	}
	o.idle = sync.NewCond(&o.mu)
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "orchestrator"))

	o.profiles = session.Subscribe()
	o.statuses = location.Subscribe()
	o.status = location.Status()
	return o
}

// Run follows session and location changes until ctx is done, then waits
// for in-flight fetches to settle. Once it has returned no new background
// work is started.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.stopped = false
	o.mu.Unlock()

	o.applyProfile(ctx, o.session.Profile())

	for {
		select {
		case <-ctx.Done():
			o.mu.Lock()
			o.stopped = true
			o.mu.Unlock()
			o.Wait()
			return ctx.Err()
		case p := <-o.profiles:
			o.applyProfile(ctx, p)
		case st := <-o.statuses:
			o.applyStatus(ctx, st)
		}
	}
}

// Refresh pulls the current session and location state and blocks until
// every fetch it started has settled. It serves callers that do not Run.
func (o *Orchestrator) Refresh(ctx context.Context) Snapshot {
	o.applyProfile(ctx, o.session.Profile())
	o.Wait()
	return o.Snapshot()
}

// Wait blocks until no fetch or acquisition is in flight.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.inflight > 0 {
		o.idle.Wait()
	}
}

// goLocked runs fn in the background and counts it as in flight. Callers
// hold o.mu; fn must not expect it held.
func (o *Orchestrator) goLocked(fn func()) {
	if o.stopped {
		return
	}
	o.inflight++
	go func() {
		defer o.done()
		fn()
	}()
}

func (o *Orchestrator) done() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	if o.inflight == 0 {
		o.idle.Broadcast()
	}
}

// Changes returns a channel that always holds the latest snapshot.
func (o *Orchestrator) Changes() <-chan Snapshot {
	return o.changes
}

func (o *Orchestrator) applyProfile(ctx context.Context, p types.UserProfile) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.profile = p
	if p.Google == nil {
		o.resetLocked()
		o.publishLocked()
		return
	}

	if !o.zonesFetched {
		o.zonesFetched = true
		o.fetchZonesLocked(ctx)
	}

	if p.Bound() {
		if !o.geoStarted {
			o.geoStarted = true
			o.acquireLocked(ctx)
		}
		o.fetchNearbyLocked(ctx, o.status.Point)
	}
	o.publishLocked()
}

func (o *Orchestrator) applyStatus(ctx context.Context, st geo.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applyStatusLocked(ctx, st)
}

// syncStatus reads the location under o.mu so it cannot overwrite a newer
// status delivered through the subscription.
func (o *Orchestrator) syncStatus(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applyStatusLocked(ctx, o.location.Status())
}

func (o *Orchestrator) applyStatusLocked(ctx context.Context, st geo.Status) {
	o.status = st
	if o.profile.Google != nil && o.profile.Bound() {
		o.fetchNearbyLocked(ctx, st.Point)
	}
	o.publishLocked()
}

// resetLocked forgets every identity-bound result. Bumping the generations
// drops whatever is still in flight.
func (o *Orchestrator) resetLocked() {
	o.zoneList = nil
	o.zonesLoading = false
	o.zonesFetched = false
	o.zoneGen++

	o.geoStarted = false
	o.stops = nil
	o.nearbyGen++
	o.nearbyPoint = nil

	o.active = nil
	o.popup = false
	o.message = ""
}

func (o *Orchestrator) fetchZonesLocked(ctx context.Context) {
	o.zoneGen++
	gen := o.zoneGen
	o.zonesLoading = true

	o.goLocked(func() {
		zones := o.zones.GetZones(ctx, o.directory)

		o.mu.Lock()
		defer o.mu.Unlock()
		if gen != o.zoneGen {
			return
		}
		o.zoneList = zones
		o.zonesLoading = false
		o.logger.Debug("zones updated", slog.Int("count", len(zones)))
		o.publishLocked()
	})
}

// fetchNearbyLocked starts a fetch for point unless one for the same point is
// already current. Only the result of the latest fetch is ever applied.
func (o *Orchestrator) fetchNearbyLocked(ctx context.Context, point geo.GeoPoint) {
	if o.nearbyPoint != nil && *o.nearbyPoint == point {
		return
	}
	o.nearbyGen++
	gen := o.nearbyGen
	o.nearbyPoint = &point
	source := o.status.Source

	o.goLocked(func() {
		stops := o.nearby.GetNearby(ctx, point)

		o.mu.Lock()
		defer o.mu.Unlock()
		if gen != o.nearbyGen {
			o.logger.Debug("dropping stale nearby stops",
				slog.Float64("lat", point.Lat),
				slog.Float64("lng", point.Lng),
			)
			return
		}
		o.stops = stops
		o.logger.Debug("nearby stops updated",
			slog.Int("count", len(stops)),
			slog.String("source", string(source)),
		)
		o.publishLocked()
	})
}

func (o *Orchestrator) acquireLocked(ctx context.Context) {
	o.goLocked(func() {
		if err := o.location.Acquire(ctx); err != nil {
			o.logger.Info("using fallback location", slog.String("error", err.Error()))
		}
		o.syncStatus(ctx)
	})
}

// SelectStop focuses a stop and closes the my-location popup.
func (o *Orchestrator) SelectStop(stop stypes.NearbyItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = &stop
	o.popup = false
	o.refresh++
	o.publishLocked()
}

// GoToMyLocation clears the selection and reopens the my-location popup.
// Without a device location it also asks for one again in the background.
func (o *Orchestrator) GoToMyLocation(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = nil
	o.popup = true
	o.refresh++
	if !o.status.HasLocation {
		o.goLocked(func() { o.RequestLocation(ctx) })
	}
	o.publishLocked()
}

// RequestLocation is the manual location retry. It returns the instruction
// to show, if any.
func (o *Orchestrator) RequestLocation(ctx context.Context) string {
	msg, err := o.location.Request(ctx)
	if err != nil {
		o.logger.Info("location request failed", slog.String("error", err.Error()))
	}

	o.mu.Lock()
	o.message = msg
	o.mu.Unlock()

	o.syncStatus(ctx)
	return msg
}

func (o *Orchestrator) SetSearchQuery(q string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.query = q
	o.publishLocked()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		Screen:                o.screenLocked(),
		Profile:               o.profile.Clone(),
		Zones:                 append([]stypes.RenewalZone{}, o.zoneList...),
		ZonesLoading:          o.zonesLoading,
		Stops:                 append([]stypes.NearbyItem{}, o.stops...),
		FilteredStops:         services.FilterStops(o.stops, o.query),
		SearchQuery:           o.query,
		Point:                 o.status.Point,
		Source:                o.status.Source,
		HasLocation:           o.status.HasLocation,
		LocationDenied:        o.status.Denied,
		ShowUserLocationPopup: o.popup,
		PopupRefresh:          o.refresh,
		Message:               o.message,
	}
	if o.active != nil {
		a := *o.active
		s.ActiveStop = &a
	}
	return s
}

func (o *Orchestrator) screenLocked() Screen {
	switch {
	case o.profile.Google == nil:
		return LoginNeeded
	case !o.profile.Bound():
		return BindNeeded
	case o.zonesLoading && len(o.zoneList) == 0:
		return ZonesLoading
	default:
		return MainReady
	}
}

func (o *Orchestrator) publishLocked() {
	s := o.snapshotLocked()
	select {
	case <-o.changes:
	default:
	}
	o.changes <- s
}
