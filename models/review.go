package models

const (
	MinRating = 1
	MaxRating = 5
)

// Review is an immutable rating and comment left on a tour.
type Review struct {
	ID       string `json:"id"`
	TourID   string `json:"tourId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	Date     string `json:"date"`
}

// ReviewInput is what a caller submits; identity comes from the authenticated session.
type ReviewInput struct {
	UserID   string `json:"-"`
	UserName string `json:"userName"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}
