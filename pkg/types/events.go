package types

import "time"

type PlaceRated struct {
	PlaceID   PlaceID   `json:"placeId"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PlaceRated) ContentType() string {
	return "application/json"
}
func (e *PlaceRated) EventType() string {
	return "favmaps.place.rated"
}
func (e *PlaceRated) Subject() string {
	return string(e.PlaceID)
}

type PlaceFavorited struct {
	Place     Place     `json:"place"`
	Bounds    GeoBounds `json:"bounds"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PlaceFavorited) ContentType() string {
	return "application/json"
}
func (e *PlaceFavorited) EventType() string {
	return "favmaps.place.favorited"
}
func (e *PlaceFavorited) Subject() string {
	return string(e.Place.ID)
}

type PlaceRemoved struct {
	PlaceID   PlaceID   `json:"placeId"`
	Bounds    GeoBounds `json:"bounds"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PlaceRemoved) ContentType() string {
	return "application/json"
}
func (e *PlaceRemoved) EventType() string {
	return "favmaps.place.removed"
}
func (e *PlaceRemoved) Subject() string {
	return string(e.PlaceID)
}
