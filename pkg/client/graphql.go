package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/samber/lo"
)

const graphQLPath = "graphql"

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQL posts a named operation to the query-language endpoint and returns
// its data member. An errors member in the response is reported as a ServerError.
func GraphQL(ctx context.Context, t Transport, operationName, query string, variables map[string]any) (json.RawMessage, error) {
	raw, err := t.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   graphQLPath,
		Body: graphQLRequest{
			OperationName: operationName,
			Query:         query,
			Variables:     variables,
		},
	})
	if err != nil {
		return nil, err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graphql response for %s: %w", operationName, err)
	}

	if len(resp.Errors) > 0 {
		return nil, &ServerError{
			StatusCode: http.StatusOK,
			Body:       string(raw),
			Messages: lo.Map(resp.Errors, func(e GraphQLError, _ int) string {
				return e.Message
			}),
		}
	}

	return resp.Data, nil
}
