package nav

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// one degree of latitude on the spherical model
const metresPerDegreeLat = earthRadiusMetres * math.Pi / 180

func TestDistance(t *testing.T) {
	a := Position{Lat: 0, Lon: 0}
	b := Position{Lat: 1, Lon: 0}
	assert.InDelta(t, metresPerDegreeLat, Distance(a, b), 1.0)

	c := Position{Lat: 0, Lon: 1}
	assert.InDelta(t, metresPerDegreeLat, Distance(a, c), 1.0)

	assert.Equal(t, 0.0, Distance(a, a))
}

func TestBearing(t *testing.T) {
	origin := Position{Lat: 0, Lon: 0}

	assert.InDelta(t, 0.0, Bearing(origin, Position{Lat: 1, Lon: 0}), 0.01)
	assert.InDelta(t, 90.0, Bearing(origin, Position{Lat: 0, Lon: 1}), 0.01)
	assert.InDelta(t, 180.0, Bearing(origin, Position{Lat: -1, Lon: 0}), 0.01)
	assert.InDelta(t, 270.0, Bearing(origin, Position{Lat: 0, Lon: -1}), 0.01)
}

func TestInterpolateMidpoint(t *testing.T) {
	a := Position{Lat: 60.1700, Lon: 24.9400, Alt: 20}
	b := Position{Lat: 60.1800, Lon: 24.9600, Alt: 40}

	total := Distance(a, b)
	speed := 10.0
	half := time.Duration(total / 2 / speed * float64(time.Second))

	pos, err := Interpolate(a, b, speed, half)
	require.NoError(t, err)

	assert.InDelta(t, total/2, Distance(a, pos), 1.0)
	assert.InDelta(t, 30.0, pos.Alt, 0.1)
}

func TestInterpolateRoundTrip(t *testing.T) {
	a := Position{Lat: 60.1700, Lon: 24.9400, Alt: 50}
	b := Position{Lat: 60.1750, Lon: 24.9500, Alt: 35}

	speed := 5.0
	elapsed := time.Duration(Distance(a, b) / speed * float64(time.Second))

	pos, err := Interpolate(a, b, speed, elapsed)
	require.NoError(t, err)
	assert.True(t, Reached(pos, b, 2.0), "expected %+v to be within epsilon of %+v", pos, b)
}

func TestInterpolateClampsAtDestination(t *testing.T) {
	a := Position{Lat: 60.1700, Lon: 24.9400, Alt: 50}
	b := Position{Lat: 60.1705, Lon: 24.9410, Alt: 30}

	pos, err := Interpolate(a, b, 100.0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, b, pos)
}

func TestInterpolateZeroLengthLeg(t *testing.T) {
	a := Position{Lat: 60.1700, Lon: 24.9400, Alt: 50}

	pos, err := Interpolate(a, a, 5.0, time.Second)
	require.NoError(t, err)
	assert.Equal(t, a, pos)
}

func TestInterpolateFaults(t *testing.T) {
	good := Position{Lat: 60.17, Lon: 24.94, Alt: 50}

	_, err := Interpolate(Position{Lat: math.NaN()}, good, 5.0, time.Second)
	require.Error(t, err)
	assert.True(t, IsFault(err))

	_, err = Interpolate(good, Position{Lat: 91, Lon: 0}, 5.0, time.Second)
	require.Error(t, err)
	assert.True(t, IsFault(err))

	_, err = Interpolate(good, good, 0, time.Second)
	require.Error(t, err)
	assert.True(t, IsFault(err))

	_, err = Interpolate(good, good, 5.0, -time.Second)
	require.Error(t, err)
	assert.True(t, IsFault(err))
}

func TestReached(t *testing.T) {
	target := Position{Lat: 60.1700, Lon: 24.9400, Alt: 50}

	assert.True(t, Reached(target, target, 2.0))
	assert.True(t, Reached(Position{Lat: 60.1700, Lon: 24.9400, Alt: 49}, target, 2.0))
	assert.False(t, Reached(Position{Lat: 60.1700, Lon: 24.9400, Alt: 40}, target, 2.0))
	assert.False(t, Reached(Position{Lat: 60.1800, Lon: 24.9400, Alt: 50}, target, 2.0))
}
