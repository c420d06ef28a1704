// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// GetAuthenticatedUser returns the account the token belongs to.
func (client *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := client.get(ctx, "/user", &user); err != nil {
		return nil, fmt.Errorf("getting authenticated user: %w", err)
	}
	return &user, nil
}

const userIdentityQuery = `query($login: String!) {
  user(login: $login) {
    login
    email
    isEmployee
  }
}`

// GetUserIdentity resolves a login's public email and employee flag
// through the GraphQL API. An unknown login is a not-found error
// (IsNotFound reports true).
func (client *Client) GetUserIdentity(ctx context.Context, login string) (*UserIdentity, error) {
	var data struct {
		User *UserIdentity `json:"user"`
	}
	if err := client.graphql(ctx, userIdentityQuery, map[string]any{"login": login}, &data); err != nil {
		return nil, fmt.Errorf("resolving identity of %s: %w", login, err)
	}
	if data.User == nil {
		return nil, fmt.Errorf("resolving identity of %s: %w", login, &GraphQLError{Type: "NOT_FOUND", Message: "user not found"})
	}
	return data.User, nil
}

// graphql runs one GraphQL query and decodes its data member into
// result. The first entry of a non-empty errors member is returned as
// a *GraphQLError.
func (client *Client) graphql(ctx context.Context, queryText string, variables map[string]any, result any) error {
	request := map[string]any{"query": queryText, "variables": variables}
	body, _, err := client.doURL(ctx, http.MethodPost, client.graphqlURL, request)
	if err != nil {
		return err
	}

	var response struct {
		Data   json.RawMessage `json:"data"`
		Errors []GraphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("github graphql: decoding response: %w", err)
	}
	if len(response.Errors) > 0 {
		first := response.Errors[0]
		return &first
	}
	if len(response.Data) == 0 || string(response.Data) == "null" {
		return errors.New("github graphql: response carried no data")
	}
	return json.Unmarshal(response.Data, result)
}
