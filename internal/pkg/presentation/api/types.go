package api

import (
	"errors"

	"github.com/favmaps/places/pkg/client"
	"github.com/favmaps/places/pkg/types"
)

type errorResponse struct {
	Error      string   `json:"error"`
	StatusCode int      `json:"statusCode,omitempty"`
	Messages   []string `json:"messages,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}

	var se *client.ServerError
	if errors.As(err, &se) {
		resp.StatusCode = se.StatusCode
		resp.Messages = se.Messages
	}

	return resp
}

type selectionBody struct {
	PlaceID *types.PlaceID `json:"placeId"`
}
