package models

// Coordinates is a WGS84 point used for map markers.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude/longitude bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Tour is a bookable guided-travel product.
// Rating and ReviewCount are derived from the reviews collection and never client-set.
type Tour struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Duration    string      `json:"duration"`
	Location    string      `json:"location"`
	Image       string      `json:"image"`
	Coordinates Coordinates `json:"coordinates"`
	Rating      *float64    `json:"rating,omitempty"`
	ReviewCount int         `json:"reviewCount"`
	Version     int64       `json:"version"`
}

// TourInput carries the client-settable fields of a tour (admin path).
type TourInput struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	Duration    string      `json:"duration"`
	Location    string      `json:"location" binding:"required"`
	Image       string      `json:"image"`
	Coordinates Coordinates `json:"coordinates"`
}
