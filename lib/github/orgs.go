// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// GetOrgMembership fetches username's membership in org. A 404 means
// the user is neither a member nor invited.
func (client *Client) GetOrgMembership(ctx context.Context, org, username string) (*OrgMembership, error) {
	var membership OrgMembership
	if err := client.get(ctx, fmt.Sprintf("/orgs/%s/memberships/%s", org, username), &membership); err != nil {
		return nil, fmt.Errorf("getting membership of %s in %s: %w", username, org, err)
	}
	return &membership, nil
}

// RemoveOrgMember removes an active member from org, revoking every
// team membership and repository access in it.
func (client *Client) RemoveOrgMember(ctx context.Context, org, username string) error {
	if err := client.delete(ctx, fmt.Sprintf("/orgs/%s/members/%s", org, username)); err != nil {
		return fmt.Errorf("removing %s from %s: %w", username, org, err)
	}
	return nil
}

// ListPendingInvitations returns every outstanding invitation to org.
func (client *Client) ListPendingInvitations(ctx context.Context, org string) ([]Invitation, error) {
	var q query
	q.setInt("per_page", 100)
	invitations, err := list[Invitation](client, q.path(fmt.Sprintf("/orgs/%s/invitations", org))).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing invitations of %s: %w", org, err)
	}
	return invitations, nil
}

// CancelInvitation cancels a pending invitation.
func (client *Client) CancelInvitation(ctx context.Context, org string, invitationID int64) error {
	if err := client.delete(ctx, fmt.Sprintf("/orgs/%s/invitations/%d", org, invitationID)); err != nil {
		return fmt.Errorf("cancelling invitation %d in %s: %w", invitationID, org, err)
	}
	return nil
}
