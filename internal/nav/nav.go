// Package nav provides great-circle geometry for waypoint navigation on a
// spherical Earth approximation. Oblateness is intentionally ignored.
package nav

import (
	"fmt"
	"math"
	"time"
)

const earthRadiusMetres float64 = 6371000

type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

// Fault is an unrecoverable geometry failure. The engine treats any Fault
// as fatal and stops ticking.
type Fault struct {
	Reason string
}

func (f *Fault) Error() string {
	return "navigation fault: " + f.Reason
}

func faultf(format string, args ...interface{}) error {
	return &Fault{Reason: fmt.Sprintf(format, args...)}
}

// IsFault reports whether err is a navigation fault.
func IsFault(err error) bool {
	_, ok := err.(*Fault)
	return ok
}

// Distance returns the haversine great-circle distance in metres between
// two positions, ignoring altitude.
// https://play.golang.org/p/MZVh5bRWqN
func Distance(from, to Position) float64 {
	var deltaLat = (to.Lat - from.Lat) * (math.Pi / 180)
	var deltaLon = (to.Lon - from.Lon) * (math.Pi / 180)

	var a = math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(from.Lat*(math.Pi/180))*math.Cos(to.Lat*(math.Pi/180))*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	var c = 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// Bearing returns the initial great-circle bearing from one position to
// another, in degrees [0, 360).
func Bearing(from, to Position) float64 {
	lat1 := from.Lat * (math.Pi / 180)
	lat2 := to.Lat * (math.Pi / 180)
	deltaLon := (to.Lon - from.Lon) * (math.Pi / 180)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)
	deg := math.Atan2(y, x) * (180 / math.Pi)

	return math.Mod(deg+360, 360)
}

// Interpolate returns the point along the geodesic from origin to dest
// after travelling at constant speed for the elapsed time. The result is
// clamped to dest once the leg distance is covered. Altitude changes
// linearly with horizontal progress.
func Interpolate(origin, dest Position, speed float64, elapsed time.Duration) (Position, error) {
	if err := checkPosition(origin); err != nil {
		return Position{}, err
	}
	if err := checkPosition(dest); err != nil {
		return Position{}, err
	}
	if speed <= 0 || !finite(speed) {
		return Position{}, faultf("invalid speed %v", speed)
	}
	if elapsed < 0 {
		return Position{}, faultf("negative elapsed time %v", elapsed)
	}

	total := Distance(origin, dest)
	travelled := speed * elapsed.Seconds()
	if travelled >= total {
		return dest, nil
	}

	frac := 0.0
	if total > 0 {
		frac = travelled / total
	}

	lat1 := origin.Lat * (math.Pi / 180)
	lon1 := origin.Lon * (math.Pi / 180)
	theta := Bearing(origin, dest) * (math.Pi / 180)
	delta := travelled / earthRadiusMetres

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2))

	pos := Position{
		Lat: lat2 * (180 / math.Pi),
		Lon: normalizeLon(lon2 * (180 / math.Pi)),
		Alt: origin.Alt + (dest.Alt-origin.Alt)*frac,
	}
	if err := checkPosition(pos); err != nil {
		return Position{}, err
	}

	return pos, nil
}

// Reached tests whether pos is within epsilon metres of target, counting
// both the horizontal great-circle distance and the altitude delta.
func Reached(pos, target Position, epsilon float64) bool {
	horizontal := Distance(pos, target)
	vertical := target.Alt - pos.Alt
	return math.Sqrt(horizontal*horizontal+vertical*vertical) <= epsilon
}

func checkPosition(p Position) error {
	if !finite(p.Lat) || !finite(p.Lon) || !finite(p.Alt) {
		return faultf("non-finite coordinate (%v, %v, %v)", p.Lat, p.Lon, p.Alt)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return faultf("latitude %v out of range", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return faultf("longitude %v out of range", p.Lon)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
