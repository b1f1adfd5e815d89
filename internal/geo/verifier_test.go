package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifier_ReferencePointInside(t *testing.T) {
	v := NewVerifier(Config{Reference: hospital, RadiusMeters: 500})
	ref := hospital
	res := v.Verify(&ref)
	assert.True(t, res.Inside)
	assert.Equal(t, 0.0, res.DistanceMeters)
}

func TestVerifier_BoundaryIsInclusive(t *testing.T) {
	v := NewVerifier(Config{Reference: hospital, RadiusMeters: 500})

	edge := northOf(hospital, 500)
	res := v.Verify(&edge)
	assert.Equal(t, 500.0, res.DistanceMeters)
	assert.True(t, res.Inside)

	beyond := northOf(hospital, 501)
	res = v.Verify(&beyond)
	assert.Equal(t, 501.0, res.DistanceMeters)
	assert.False(t, res.Inside)
}

func TestVerifier_MissingOrMalformedPosition(t *testing.T) {
	v := NewVerifier(Config{Reference: hospital, RadiusMeters: 500})

	assert.Equal(t, Result{}, v.Verify(nil))
	assert.Equal(t, Result{}, v.Verify(&GeoPoint{Latitude: math.NaN(), Longitude: hospital.Longitude}))
	assert.Equal(t, Result{}, v.Verify(&GeoPoint{Latitude: 120, Longitude: 10}))
}

func TestVerifier_UpdateConfigAppliesToNextCall(t *testing.T) {
	v := NewVerifier(Config{Reference: hospital, RadiusMeters: 500})
	p := northOf(hospital, 800)
	assert.False(t, v.Verify(&p).Inside)

	v.UpdateConfig(Config{Reference: hospital, RadiusMeters: 1000})
	res := v.Verify(&p)
	assert.True(t, res.Inside)
	assert.Equal(t, 800.0, res.DistanceMeters)
	assert.Equal(t, 1000.0, v.Config().RadiusMeters)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Reference: hospital, RadiusMeters: 1}.Validate())
	assert.Error(t, Config{Reference: hospital, RadiusMeters: 0}.Validate())
	assert.Error(t, Config{Reference: hospital, RadiusMeters: math.NaN()}.Validate())
	assert.Error(t, Config{Reference: GeoPoint{Latitude: -95}, RadiusMeters: 10}.Validate())
}
