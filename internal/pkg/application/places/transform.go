package places

import (
	"encoding/json"
	"fmt"

	"github.com/favmaps/places/pkg/types"
)

const (
	visibleAreaPlacesKey = "visibleAreaPlaces"
	placeDetailsKey      = "placeDetails"
)

// FlattenVisibleAreaPlaces turns the visibleAreaPlaces envelope of the
// query-language transport into the flat place list the REST transport
// returns, merging each nested place with its sibling averageRating. Input
// without the envelope is returned unchanged.
func FlattenVisibleAreaPlaces(raw json.RawMessage) (json.RawMessage, error) {
	wrapped, ok := envelope(raw, visibleAreaPlacesKey)
	if !ok {
		return raw, nil
	}

	var entries []types.GraphQLVisibleAreaPlace
	if err := json.Unmarshal(wrapped, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", visibleAreaPlacesKey, err)
	}

	flat := make([]map[string]json.RawMessage, 0, len(entries))
	for i, e := range entries {
		fields, err := merge(e.Place, map[string]json.RawMessage{
			"averageRating": e.AverageRating,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to flatten %s[%d]: %w", visibleAreaPlacesKey, i, err)
		}
		flat = append(flat, fields)
	}

	return json.Marshal(flat)
}

// FlattenPlaceDetails turns the placeDetails envelope into the flat details
// shape of the REST transport. Input without the envelope is returned unchanged.
func FlattenPlaceDetails(raw json.RawMessage) (json.RawMessage, error) {
	wrapped, ok := envelope(raw, placeDetailsKey)
	if !ok {
		return raw, nil
	}

	var details types.GraphQLPlaceDetails
	if err := json.Unmarshal(wrapped, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", placeDetailsKey, err)
	}

	fields, err := merge(details.Place, map[string]json.RawMessage{
		"averageRating":   details.AverageRating,
		"userRating":      details.UserRating,
		"creatorUsername": details.CreatorUsername,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to flatten %s: %w", placeDetailsKey, err)
	}

	return json.Marshal(fields)
}

// envelope returns the member named key when raw is a JSON object that has it.
func envelope(raw json.RawMessage, key string) (json.RawMessage, bool) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, false
	}

	wrapped, ok := members[key]
	return wrapped, ok
}

// merge copies the fields of the place object and overlays the given
// siblings. Siblings missing from the response are left out.
func merge(place json.RawMessage, siblings map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(place) > 0 {
		if err := json.Unmarshal(place, &fields); err != nil {
			return nil, err
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	for k, v := range siblings {
		if len(v) > 0 {
			fields[k] = v
		}
	}

	return fields, nil
}
