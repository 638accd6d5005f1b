package config

import (
	"strconv"
	"time"
)

type AttendanceConfig interface {
	GetSessionDuration() time.Duration
	GetGeofenceRadiusMeters() float64
	GetPrimaryFactorThreshold() int
}

type Attendance struct{}

var _ AttendanceConfig = Attendance{}

func (Attendance) GetSessionDuration() time.Duration {
	if v, err := strconv.Atoi(GetEnv("SESSION_DURATION_MINUTES", "15")); err == nil && v > 0 {
		return time.Duration(v) * time.Minute
	}
	return 15 * time.Minute
}

func (Attendance) GetGeofenceRadiusMeters() float64 {
	if v, err := strconv.ParseFloat(GetEnv("GEOFENCE_RADIUS_METERS", "50"), 64); err == nil && v > 0 {
		return v
	}
	return 50
}

func (Attendance) GetPrimaryFactorThreshold() int {
	if v, err := strconv.Atoi(GetEnv("PRIMARY_FACTOR_THRESHOLD", "1")); err == nil && v > 0 {
		return v
	}
	return 1
}
