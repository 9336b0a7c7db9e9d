package service

import (
	"encoding/xml"
	"fmt"
	"math"

	"tourguard-backend/internal/models"
)

// gpxFile is the subset of the GPX 1.1 schema the parser reads.
type gpxFile struct {
	XMLName   xml.Name   `xml:"gpx"`
	Waypoints []gpxPoint `xml:"wpt"`
	Tracks    []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Name string   `xml:"name"`
}

// ParseGPX extracts a route from GPX content. Named waypoints are preferred;
// without any, the first and last track points bound the route.
func ParseGPX(content []byte) (*models.RouteData, error) {
	var file gpxFile
	if err := xml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse GPX file: %w", err)
	}

	waypoints := make([]models.Waypoint, 0, len(file.Waypoints))
	for i, wpt := range file.Waypoints {
		name := wpt.Name
		if name == "" {
			name = fmt.Sprintf("Waypoint %d", i+1)
		}
		waypoints = append(waypoints, models.Waypoint{
			ID:        fmt.Sprintf("wpt_%d", i),
			Name:      name,
			Latitude:  wpt.Lat,
			Longitude: wpt.Lon,
			Altitude:  wpt.Ele,
			Type:      waypointType(i, len(file.Waypoints)),
		})
	}

	if len(waypoints) == 0 {
		trackPoints := flattenTrackPoints(file.Tracks)
		if len(trackPoints) > 0 {
			first := trackPoints[0]
			waypoints = append(waypoints, models.Waypoint{
				ID:        "track_start",
				Name:      "Start",
				Latitude:  first.Lat,
				Longitude: first.Lon,
				Altitude:  first.Ele,
				Type:      "start",
			})
			if len(trackPoints) > 1 {
				last := trackPoints[len(trackPoints)-1]
				waypoints = append(waypoints, models.Waypoint{
					ID:        "track_end",
					Name:      "End",
					Latitude:  last.Lat,
					Longitude: last.Lon,
					Altitude:  last.Ele,
					Type:      "end",
				})
			}
		}
	}

	distance := totalDistanceKm(waypoints)

	return &models.RouteData{
		Waypoints:         waypoints,
		GPXData:           string(content),
		TotalDistanceKm:   distance,
		EstimatedDuration: estimateDurationMinutes(distance, waypoints),
		Description:       "Imported GPX route",
	}, nil
}

func waypointType(index, total int) string {
	switch {
	case index == 0:
		return "start"
	case index == total-1:
		return "end"
	default:
		return "checkpoint"
	}
}

func flattenTrackPoints(tracks []gpxTrack) []gpxPoint {
	var points []gpxPoint
	for _, track := range tracks {
		for _, segment := range track.Segments {
			points = append(points, segment.Points...)
		}
	}
	return points
}

func totalDistanceKm(waypoints []models.Waypoint) float64 {
	var total float64
	for i := 1; i < len(waypoints); i++ {
		total += haversineKm(
			waypoints[i-1].Latitude, waypoints[i-1].Longitude,
			waypoints[i].Latitude, waypoints[i].Longitude,
		)
	}
	return total
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// estimateDurationMinutes applies a 4 km/h hiking speed plus one hour per
// 600 m of elevation gain (Naismith's rule approximation).
func estimateDurationMinutes(distanceKm float64, waypoints []models.Waypoint) int {
	const baseSpeedKmh = 4.0

	var elevationGain float64
	for i := 1; i < len(waypoints); i++ {
		prev, curr := waypoints[i-1].Altitude, waypoints[i].Altitude
		if prev != nil && curr != nil && *curr > *prev {
			elevationGain += *curr - *prev
		}
	}

	hours := distanceKm/baseSpeedKmh + elevationGain/600
	return int(math.Round(hours * 60))
}
