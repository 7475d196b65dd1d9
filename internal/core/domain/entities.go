package domain

import (
	"time"
)

// Client is a customer record owned by a sales rep. Only the location matters for
// route planning; the remaining fields are carried through for display.
type Client struct {
	ID           string         `json:"id"`
	RepID        string         `json:"rep_id,omitempty"`
	Name         string         `json:"name"`
	BusinessType string         `json:"business_type,omitempty"`
	Address      string         `json:"address,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Location     *GeoPoint      `json:"location,omitempty"` // nil means unplottable
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}

// Plottable reports whether the client has a present, valid location.
func (c Client) Plottable() bool {
	return c.Location != nil && c.Location.Valid()
}

// TravelMode selects the provider's routing profile.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
)

// Valid reports whether m is a known mode. The empty mode is valid and means driving.
func (m TravelMode) Valid() bool {
	switch m {
	case "", ModeDriving, ModeWalking, ModeCycling:
		return true
	}
	return false
}

// OrDefault returns ModeDriving for the empty mode.
func (m TravelMode) OrDefault() TravelMode {
	if m == "" {
		return ModeDriving
	}
	return m
}

// RouteSource records which path produced a route.
type RouteSource string

const (
	SourceProvider     RouteSource = "provider"
	SourceStraightLine RouteSource = "straight_line"
	SourceNone         RouteSource = "none"
)

// RouteOptions controls a directions request.
type RouteOptions struct {
	Optimize bool       `json:"optimize"`
	Mode     TravelMode `json:"mode,omitempty"`
}

// RouteStep is a single turn-by-turn instruction inside a leg.
type RouteStep struct {
	Instruction     string  `json:"instruction,omitempty"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	EncodedPath     string  `json:"encoded_path,omitempty"`
}

// RouteLeg covers one consecutive waypoint pair.
type RouteLeg struct {
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Steps           []RouteStep `json:"steps,omitempty"`
}

// DirectionsRequest is what a directions provider receives.
type DirectionsRequest struct {
	Origin      GeoPoint
	Destination GeoPoint
	Stops       []GeoPoint
	Optimize    bool
	Mode        TravelMode
}

// ProviderRoute is the raw answer of a directions provider. Either Points or
// EncodedPolyline (or both) carry the path geometry.
type ProviderRoute struct {
	Points          []GeoPoint
	EncodedPolyline string
	Legs            []RouteLeg
	WaypointOrder   []int // indices into DirectionsRequest.Stops
}

// Directions is the resolved path for an ordered waypoint list.
type Directions struct {
	Points          []GeoPoint  `json:"points"`
	EncodedPath     string      `json:"encoded_path"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Legs            []RouteLeg  `json:"legs"`
	WaypointOrder   []int       `json:"waypoint_order"`
	Source          RouteSource `json:"source"`
}

// RouteResult is a planned visiting order plus its path and metrics. It is built
// fresh for every call and never stored.
type RouteResult struct {
	OrderedClients       []Client    `json:"ordered_clients"`
	PathPoints           []GeoPoint  `json:"path_points"`
	EncodedPath          *string     `json:"encoded_path"`
	TotalDistanceMeters  float64     `json:"total_distance_meters"`
	TotalDurationSeconds float64     `json:"total_duration_seconds"`
	Legs                 []RouteLeg  `json:"legs"`
	WaypointOrder        []int       `json:"waypoint_order,omitempty"`
	Source               RouteSource `json:"source"`
	Region               *Region     `json:"region,omitempty"`
	NavigationURL        string      `json:"navigation_url,omitempty"`
}

// RoutePlanned is published after a rep's route has been computed (or failed to).
type RoutePlanned struct {
	RepID     string       `json:"rep_id"`
	RequestID string       `json:"request_id,omitempty"`
	Outcome   RouteOutcome `json:"outcome"`
	PlannedAt time.Time    `json:"planned_at"`
}

// PlanRequest asks the background planner to compute a rep's route.
type PlanRequest struct {
	RequestID string     `json:"request_id"`
	RepID     string     `json:"rep_id"`
	ClientIDs []string   `json:"client_ids,omitempty"`
	Start     *GeoPoint  `json:"start_location,omitempty"`
	Mode      TravelMode `json:"mode,omitempty"`
}

// DegradedNotice is published whenever the straight-line fallback was used.
type DegradedNotice struct {
	Provider  string    `json:"provider"`
	Reason    string    `json:"reason"`
	Waypoints int       `json:"waypoints"`
	Time      time.Time `json:"time"`
}

// MatrixCell is one origin/destination pair of a distance matrix.
type MatrixCell struct {
	Destination     GeoPoint `json:"destination"`
	DistanceMeters  float64  `json:"distance_meters"`
	DurationSeconds float64  `json:"duration_seconds"`
	DistanceText    string   `json:"distance_text"`
	DurationText    string   `json:"duration_text"`
}

// MatrixRow holds the cells for a single origin.
type MatrixRow struct {
	Origin   GeoPoint     `json:"origin"`
	Elements []MatrixCell `json:"elements"`
}
