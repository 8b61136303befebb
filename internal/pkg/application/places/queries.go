package places

const getVisibleAreaPlacesQuery string = `
query GetVisibleAreaPlaces(
  $neLat: Float!,
  $neLng: Float!,
  $swLat: Float!,
  $swLng: Float!
) {
  visibleAreaPlaces(bounds: {
    neLat: $neLat,
    neLng: $neLng,
    swLat: $swLat,
    swLng: $swLng
  }) {
    place {
      id
      name
      address
      lat
      lng
      createdAt
      creatorUserId
    }
    averageRating
  }
}`

const getPlaceDetailsQuery string = `
query GetPlaceDetails($id: ID!) {
  placeDetails(id: $id) {
    place {
      id
      name
      address
      lat
      lng
      createdAt
      creatorUserId
    }
    userRating
    creatorUsername
    averageRating
  }
}`
