package winds

import (
	"github.com/rtm0/winds/internal/errs"
	"github.com/rtm0/winds/internal/geo"
)

// Track is a feature's start and end position, used by the operations
// that work from latitudes and longitudes instead of pixels.
type Track struct {
	OldLat  float64
	OldLong float64
	NewLat  float64
	NewLong float64
	// DeltaTime is the travel time in minutes.
	DeltaTime float64
	// Earth defaults to WGS84.
	Earth geo.Ellipsoid
}

func (t Track) earth() geo.Ellipsoid {
	if t.Earth.A == 0 {
		return geo.WGS84
	}
	return t.Earth
}

// WindInfoFLL returns the wind that moved a feature along the track.
func WindInfoFLL(t Track) (Record, error) {
	if t.DeltaTime <= 0 {
		return Record{}, errs.Errorf(errs.EINVALID, "delta_time must be a positive number of minutes but was %v", t.DeltaTime)
	}
	speed, angle := motion(t.earth(), t.DeltaTime, t.OldLat, t.OldLong, t.NewLat, t.NewLong)
	v, u := components(speed, angle)
	return Record{Latitude: t.NewLat, Longitude: t.NewLong, Speed: speed, Angle: angle, V: v, U: u}, nil
}

// VelocityFLL returns the speed and angle of the wind along the track.
func VelocityFLL(t Track) (speed, angle float64, err error) {
	r, err := WindInfoFLL(t)
	return r.Speed, r.Angle, err
}

// VUFLL returns the northward and eastward components of the wind along
// the track.
func VUFLL(t Track) (v, u float64, err error) {
	r, err := WindInfoFLL(t)
	return r.V, r.U, err
}
