// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
)

// State is a handle's organization membership state.
type State string

const (
	StateAbsent  State = "absent"
	StatePending State = "pending"
	StateActive  State = "active"
)

// Exemption names why an identity is protected from organization
// removal. The empty Exemption means not exempt.
type Exemption string

const (
	NotExempt        Exemption = ""
	ExemptEmployee   Exemption = "employee"
	ExemptPartner    Exemption = "partner-domain"
	ExemptInstructor Exemption = "instructor"
)

// API is the platform surface the resolver reads.
type API interface {
	GetOrgMembership(ctx context.Context, org, username string) (*github.OrgMembership, error)
	GetUserIdentity(ctx context.Context, login string) (*github.UserIdentity, error)
}

// Config configures a Resolver.
type Config struct {
	Client API

	// PartnerDomains are email domains whose holders are exempt, for
	// example "microsoft.com".
	PartnerDomains []string

	Instructors *Instructors

	Logger *slog.Logger
}

// Resolver looks up membership state and exemption. It never mutates
// anything.
type Resolver struct {
	client         API
	partnerDomains []string
	instructors    *Instructors
	logger         *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(config Config) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	domains := make([]string, 0, len(config.PartnerDomains))
	for _, domain := range config.PartnerDomains {
		domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	return &Resolver{
		client:         config.Client,
		partnerDomains: domains,
		instructors:    config.Instructors,
		logger:         logger,
	}
}

// Instructors returns the configured allow-list.
func (resolver *Resolver) Instructors() *Instructors {
	return resolver.instructors
}

// MembershipState returns handle's state in org. A 404 is StateAbsent.
func (resolver *Resolver) MembershipState(ctx context.Context, org, handle string) (State, error) {
	membership, err := resolver.client.GetOrgMembership(ctx, org, handle)
	if err != nil {
		if github.IsNotFound(err) {
			return StateAbsent, nil
		}
		return "", err
	}
	switch membership.State {
	case "active":
		return StateActive, nil
	case "pending":
		return StatePending, nil
	default:
		return "", fmt.Errorf("unexpected membership state %q for %s in %s", membership.State, handle, org)
	}
}

// Exemption reports whether user is protected from organization
// removal and why. The instructor list is consulted first so listed
// handles need no API call. The email recorded for the class member
// and the account's public email are both checked against partner
// domains.
func (resolver *Resolver) Exemption(ctx context.Context, user classroom.User) (Exemption, error) {
	if resolver.instructors.Contains(user.Handle) {
		return ExemptInstructor, nil
	}
	if resolver.partnerEmail(user.Email) {
		return ExemptPartner, nil
	}

	identity, err := resolver.client.GetUserIdentity(ctx, user.Handle)
	if err != nil {
		if github.IsNotFound(err) {
			resolver.logger.Warn("identity not found, treating as not exempt", "handle", user.Handle)
			return NotExempt, nil
		}
		return NotExempt, fmt.Errorf("checking exemption of %s: %w", user.Handle, err)
	}
	if identity.IsEmployee {
		return ExemptEmployee, nil
	}
	if resolver.partnerEmail(identity.Email) {
		return ExemptPartner, nil
	}
	return NotExempt, nil
}

// IsExempt is Exemption reduced to a bool.
func (resolver *Resolver) IsExempt(ctx context.Context, user classroom.User) (bool, error) {
	exemption, err := resolver.Exemption(ctx, user)
	return exemption != NotExempt, err
}

func (resolver *Resolver) partnerEmail(email string) bool {
	_, domain, found := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !found {
		return false
	}
	for _, partner := range resolver.partnerDomains {
		if domain == partner || strings.HasSuffix(domain, "."+partner) {
			return true
		}
	}
	return false
}
