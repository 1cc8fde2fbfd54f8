package location

import (
	"time"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"
)

type Provider int

const (
	ProviderGPS Provider = iota
	ProviderNetwork
	ProviderOther
)

// Fix is one raw location update from the platform provider. Optional fields
// carry a Has* flag because zero is a valid value for all of them.
type Fix struct {
	Lat float64
	Lon float64

	Accuracy    float64 // meter, 68% confidence radius
	HasAccuracy bool

	Bearing    float32 // degrees, from the device
	HasBearing bool

	Provider Provider

	ElapsedMillis int64 // monotonic clock of the device
	HasElapsed    bool
}

func (f Fix) coordinate() datastructure.Coordinate {
	return datastructure.NewCoordinate(f.Lat, f.Lon)
}

// Update is the filtered position handed to the tracking controller for each
// accepted fix.
type Update struct {
	Position datastructure.Coordinate
	Bearing  float64
}

type Config struct {
	MaxAccuracyMeters     float64       // fixes above this are dropped
	GoodGPSAccuracyMeters float64       // gps fixes at or below count as "good"
	NetworkHoldoff        time.Duration // network fixes are dropped this long after a good gps fix
	MaxSpeedMps           float64       // implied speeds above this are teleport glitches
	SmoothingFactor       float64       // exponential moving average alpha
}

func DefaultConfig() Config {
	return Config{
		MaxAccuracyMeters:     60,
		GoodGPSAccuracyMeters: 35,
		NetworkHoldoff:        12 * time.Second,
		MaxSpeedMps:           80,
		SmoothingFactor:       0.35,
	}
}

// minSpeedCheckInterval guards the implied-speed rule against near-zero
// divisions when two fixes arrive almost simultaneously.
const minSpeedCheckInterval = 200 * time.Millisecond

// Pipeline filters and smooths a strictly sequential stream of fixes for one
// tracking session. It is not safe for concurrent use; the session owner is
// the sole caller.
type Pipeline struct {
	cfg Config

	hasPrev     bool
	prev        datastructure.Coordinate // last accepted smoothed position
	prevElapsed int64
	hasElapsed  bool

	hasBearingRef bool
	bearingRef    datastructure.Coordinate
	lastBearing   float64

	hasGoodGPS     bool
	goodGPSElapsed int64
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Update runs the acceptance rules, smoothing and bearing derivation for one
// fix. Rejected fixes leave the pipeline state untouched.
func (p *Pipeline) Update(fix Fix) (Update, bool) {
	if !p.accept(fix) {
		return Update{}, false
	}

	if fix.Provider == ProviderGPS && fix.HasAccuracy &&
		fix.Accuracy <= p.cfg.GoodGPSAccuracyMeters && fix.HasElapsed {
		p.hasGoodGPS = true
		p.goodGPSElapsed = fix.ElapsedMillis
	}

	smoothed := fix.coordinate()
	if p.hasPrev {
		alpha := p.cfg.SmoothingFactor
		smoothed = datastructure.NewCoordinate(
			p.prev.Lat+alpha*(fix.Lat-p.prev.Lat),
			p.prev.Lon+alpha*(fix.Lon-p.prev.Lon),
		)
	}

	bearing := p.lastBearing
	if fix.HasBearing {
		bearing = float64(fix.Bearing)
	} else if p.hasBearingRef {
		bearing = geo.CalculateInitialBearing(p.bearingRef.Lat, p.bearingRef.Lon,
			smoothed.Lat, smoothed.Lon)
	}

	p.hasPrev = true
	p.prev = smoothed
	p.hasElapsed = fix.HasElapsed
	p.prevElapsed = fix.ElapsedMillis
	p.hasBearingRef = true
	p.bearingRef = smoothed
	p.lastBearing = bearing

	return Update{Position: smoothed, Bearing: bearing}, true
}

// accept applies the rejection rules in order; the first failing rule wins.
func (p *Pipeline) accept(fix Fix) bool {
	// missing accuracy is treated as worst case
	if !fix.HasAccuracy || fix.Accuracy > p.cfg.MaxAccuracyMeters {
		return false
	}

	// a coarse network fix must not override a recent precise gps fix
	if fix.Provider == ProviderNetwork && p.hasGoodGPS && fix.HasElapsed {
		sinceGoodGPS := time.Duration(fix.ElapsedMillis-p.goodGPSElapsed) * time.Millisecond
		if sinceGoodGPS >= 0 && sinceGoodGPS <= p.cfg.NetworkHoldoff {
			return false
		}
	}

	// teleport guard
	if p.hasPrev && p.hasElapsed && fix.HasElapsed {
		dt := time.Duration(fix.ElapsedMillis-p.prevElapsed) * time.Millisecond
		if dt > minSpeedCheckInterval {
			dist := geo.CalculateHaversineDistance(p.prev.Lat, p.prev.Lon, fix.Lat, fix.Lon)
			if dist/dt.Seconds() > p.cfg.MaxSpeedMps {
				return false
			}
		}
	}

	return true
}

// Bootstrap feeds the most recent cached last-known fix through the normal
// update path once, so a position shows up before the first live fix. The
// teleport rule never applies because the pipeline has no previous fix yet.
func (p *Pipeline) Bootstrap(lastKnown []Fix) (Update, bool) {
	bestIdx := -1
	for i, fix := range lastKnown {
		if bestIdx == -1 {
			bestIdx = i
			continue
		}
		if fix.HasElapsed && (!lastKnown[bestIdx].HasElapsed ||
			fix.ElapsedMillis > lastKnown[bestIdx].ElapsedMillis) {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return Update{}, false
	}
	return p.Update(lastKnown[bestIdx])
}

// Reset drops all per-session state. Called when tracking stops or a new
// route is loaded.
func (p *Pipeline) Reset() {
	cfg := p.cfg
	*p = Pipeline{cfg: cfg}
}
