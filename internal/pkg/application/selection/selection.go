package selection

import (
	"context"
	"sync"

	"github.com/favmaps/places/internal/pkg/infrastructure/logging"
	"github.com/favmaps/places/pkg/types"
)

//go:generate moq -rm -out selection_mock.go . Store

// Store holds the globally selected place. A nil id clears the selection.
type Store interface {
	SetSelectedPlace(ctx context.Context, id *types.PlaceID)
	SelectedPlace(ctx context.Context) (types.PlaceID, bool)
}

type Memory struct {
	mu        sync.RWMutex
	selected  *types.PlaceID
	listeners []func(*types.PlaceID)
}

func New() *Memory {
	return &Memory{}
}

// OnChange registers fn to be called with the new selection after every set.
func (s *Memory) OnChange(fn func(*types.PlaceID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Memory) SetSelectedPlace(ctx context.Context, id *types.PlaceID) {
	s.mu.Lock()
	if id == nil {
		s.selected = nil
	} else {
		v := *id
		s.selected = &v
	}
	listeners := append([]func(*types.PlaceID){}, s.listeners...)
	selected := s.selected
	s.mu.Unlock()

	log := logging.GetFromContext(ctx)
	if selected == nil {
		log.Debug().Msg("selected place cleared")
	} else {
		log.Debug().Str("place_id", string(*selected)).Msg("place selected")
	}

	for _, fn := range listeners {
		fn(selected)
	}
}

func (s *Memory) SelectedPlace(ctx context.Context) (types.PlaceID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == nil {
		return "", false
	}
	return *s.selected, true
}
