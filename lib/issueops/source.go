// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/issueform"
	"github.com/bureau-foundation/classroom/lib/lifecycle"
)

// IssueSource lists open class requests. It implements
// lifecycle.Source.
type IssueSource struct {
	dispatcher *Dispatcher
}

// OpenClasses returns every open issue carrying the class label whose
// body parses. Pull requests are skipped; unparseable requests are
// logged and skipped so one bad issue cannot block expiry of the rest.
func (source IssueSource) OpenClasses(ctx context.Context) ([]lifecycle.OpenClass, error) {
	dispatcher := source.dispatcher
	var labels []string
	if dispatcher.classLabel != "" {
		labels = []string{dispatcher.classLabel}
	}
	issues, err := dispatcher.client.ListIssues(ctx, dispatcher.owner, dispatcher.repository, github.ListIssuesOptions{
		State:   "open",
		Labels:  labels,
		PerPage: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("listing class requests in %s/%s: %w", dispatcher.owner, dispatcher.repository, err)
	}

	var open []lifecycle.OpenClass
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}
		class, err := dispatcher.classFromIssue(issue)
		if err != nil {
			dispatcher.logger.Warn("skipping unparseable class request", "issue", issue.Number, "error", err)
			continue
		}
		open = append(open, lifecycle.OpenClass{
			Class:    class,
			Notifier: dispatcher.notifier(issue.Number),
			Source:   fmt.Sprintf("issue #%d", issue.Number),
		})
	}
	return open, nil
}

// classFromIssue builds the class snapshot from a request issue.
func (dispatcher *Dispatcher) classFromIssue(issue github.Issue) (classroom.Class, error) {
	class, err := issueform.Parse(issue.Body)
	if err != nil {
		return classroom.Class{}, err
	}
	class.Organization = dispatcher.organization
	class.Server = dispatcher.server
	class = class.Normalize()
	return class.WithTeam(dispatcher.naming.Team(class)), nil
}
