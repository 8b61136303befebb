package selection

import (
	"context"
	"testing"

	"github.com/favmaps/places/pkg/types"
	"github.com/matryer/is"
)

func TestSelectAndClear(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := New()

	var seen []*types.PlaceID
	s.OnChange(func(id *types.PlaceID) { seen = append(seen, id) })

	_, ok := s.SelectedPlace(ctx)
	is.True(!ok)

	id := types.PlaceID("p1")
	s.SetSelectedPlace(ctx, &id)
	id = "mutated after the call"

	got, ok := s.SelectedPlace(ctx)
	is.True(ok)
	is.Equal(got, types.PlaceID("p1"))

	s.SetSelectedPlace(ctx, nil)
	_, ok = s.SelectedPlace(ctx)
	is.True(!ok)

	is.Equal(len(seen), 2)
	is.Equal(*seen[0], types.PlaceID("p1"))
	is.True(seen[1] == nil)
}
