package types

import (
	"encoding/json"
	"fmt"
)

type PlaceID string

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoBounds is the visible map viewport. It is used as a cache key, so two
// bounds address the same cache entry only if they are structurally equal.
type GeoBounds struct {
	NE LatLng `json:"ne"`
	SW LatLng `json:"sw"`
}

func (b GeoBounds) String() string {
	return fmt.Sprintf("ne(%g,%g) sw(%g,%g)", b.NE.Lat, b.NE.Lng, b.SW.Lat, b.SW.Lng)
}

type Place struct {
	ID            PlaceID `json:"id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	CreatorUserID string  `json:"creatorUserId,omitempty"`
	AverageRating float64 `json:"averageRating"`
}

// PlaceDetails merges the place record, its aggregate rating and the rating
// given by the requesting user.
type PlaceDetails struct {
	Place
	UserRating      *int   `json:"userRating"`
	CreatorUsername string `json:"creatorUsername"`
}

type SubmittedPlaceRating struct {
	PlaceID PlaceID `json:"placeId"`
	Rating  int     `json:"rating"`
}

type SubmittedAddPlaceData struct {
	Place Place  `json:"place"`
	NE    LatLng `json:"ne"`
	SW    LatLng `json:"sw"`
}

func (d SubmittedAddPlaceData) Bounds() GeoBounds {
	return GeoBounds{NE: d.NE, SW: d.SW}
}

type SubmittedRemovePlaceData struct {
	PlaceID PlaceID `json:"placeId"`
	NE      LatLng  `json:"ne"`
	SW      LatLng  `json:"sw"`
}

func (d SubmittedRemovePlaceData) Bounds() GeoBounds {
	return GeoBounds{NE: d.NE, SW: d.SW}
}

type SuccessMessageResponse struct {
	Message string `json:"message"`
}

// GraphQLVisibleAreaPlace is one entry of the visibleAreaPlaces query result.
type GraphQLVisibleAreaPlace struct {
	Place         json.RawMessage `json:"place"`
	AverageRating json.RawMessage `json:"averageRating"`
}

// GraphQLPlaceDetails is the placeDetails query result.
type GraphQLPlaceDetails struct {
	Place           json.RawMessage `json:"place"`
	AverageRating   json.RawMessage `json:"averageRating"`
	UserRating      json.RawMessage `json:"userRating"`
	CreatorUsername json.RawMessage `json:"creatorUsername"`
}
