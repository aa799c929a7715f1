// Package duplicates looks up existing CRM leads before a paper intake is
// entered. The check is advisory: failures degrade the result instead of
// blocking the caller.
package duplicates

import (
	"context"
	"sort"
	"strings"
	"time"

	"inquiryflow/internal/crm"
	"inquiryflow/internal/forms"
	"inquiryflow/internal/logging"
	"inquiryflow/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Advisory summarizes a duplicate check for the intake screen
type Advisory string

const (
	AdvisoryClear   Advisory = "clear"
	AdvisoryMatches Advisory = "matches"
	// AdvisoryUnknown means at least one lookup failed; Matches may be partial.
	AdvisoryUnknown Advisory = "unknown"
)

// Match paths
const (
	MatchedByName  = "name"
	MatchedByEmail = "email"
)

// Searcher is the lead index of the CRM checked for duplicates
type Searcher interface {
	SearchLeadsByName(ctx context.Context, first, last string) ([]crm.Lead, error)
	SearchLeadsByEmail(ctx context.Context, email string) ([]crm.Lead, error)
}

// Match is a candidate existing lead
type Match struct {
	ExternalLeadID string    `json:"external_lead_id"`
	FullName       string    `json:"full_name"`
	Status         string    `json:"status,omitempty"`
	ExternalURL    string    `json:"external_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	MatchedBy      []string  `json:"matched_by"`
}

// Result is the outcome of FindDuplicates
type Result struct {
	HasPotentialDuplicates bool     `json:"has_potential_duplicates"`
	Matches                []Match  `json:"matches"`
	SearchedName           string   `json:"searched_name"`
	Advisory               Advisory `json:"advisory"`
	Error                  string   `json:"error,omitempty"`
}

// Service runs duplicate checks
type Service struct {
	searcher Searcher
	log      *zap.Logger
}

// New creates a service. A nil searcher makes every check unknown.
func New(searcher Searcher, log *zap.Logger) *Service {
	return &Service{searcher: searcher, log: logging.OrNop(log).Named("duplicates")}
}

// FindDuplicates searches by name and, when given, by email. Both lookups run
// concurrently and their results are merged by lead id.
func (s *Service) FindDuplicates(ctx context.Context, name, email string) Result {
	name = strings.Join(strings.Fields(name), " ")
	email = strings.TrimSpace(email)
	res := s.find(ctx, name, email)

	metrics.RecordDuplicateCheck(string(res.Advisory))
	if res.Advisory == AdvisoryUnknown {
		s.log.Warn("duplicate check degraded", zap.String("error", res.Error))
	}
	return res
}

func (s *Service) find(ctx context.Context, name, email string) Result {
	res := Result{SearchedName: name, Matches: []Match{}}
	if name == "" {
		res.Advisory = AdvisoryUnknown
		res.Error = "a name is required to search for duplicates"
		return res
	}
	if s.searcher == nil {
		res.Advisory = AdvisoryUnknown
		res.Error = "duplicate search is not configured"
		return res
	}

	var byName, byEmail []crm.Lead
	var nameErr, emailErr error

	var g errgroup.Group
	g.Go(func() error {
		first, last := forms.SplitName(name)
		byName, nameErr = s.searcher.SearchLeadsByName(ctx, first, last)
		return nil
	})
	if email != "" {
		g.Go(func() error {
			byEmail, emailErr = s.searcher.SearchLeadsByEmail(ctx, email)
			return nil
		})
	}
	_ = g.Wait()

	res.Matches = merge(byName, byEmail)
	res.HasPotentialDuplicates = len(res.Matches) > 0

	var errs []string
	if nameErr != nil {
		errs = append(errs, "name search: "+nameErr.Error())
	}
	if emailErr != nil {
		errs = append(errs, "email search: "+emailErr.Error())
	}
	switch {
	case len(errs) > 0:
		res.Advisory = AdvisoryUnknown
		res.Error = strings.Join(errs, "; ")
	case res.HasPotentialDuplicates:
		res.Advisory = AdvisoryMatches
	default:
		res.Advisory = AdvisoryClear
	}
	return res
}

// merge unions the lookups by lead id. Leads found by both paths rank first,
// then email-only, then name-only; ties are newest first.
func merge(byName, byEmail []crm.Lead) []Match {
	index := make(map[string]int)
	matches := []Match{}
	add := func(leads []crm.Lead, path string) {
		for _, l := range leads {
			// Leads without an id cannot be matched across paths.
			if l.ID == "" {
				matches = append(matches, Match{
					FullName:    l.FullName(),
					Status:      l.Status,
					ExternalURL: l.URL,
					CreatedAt:   l.CreatedAt,
					MatchedBy:   []string{path},
				})
				continue
			}
			if i, ok := index[l.ID]; ok {
				if !contains(matches[i].MatchedBy, path) {
					matches[i].MatchedBy = append(matches[i].MatchedBy, path)
				}
				continue
			}
			index[l.ID] = len(matches)
			matches = append(matches, Match{
				ExternalLeadID: l.ID,
				FullName:       l.FullName(),
				Status:         l.Status,
				ExternalURL:    l.URL,
				CreatedAt:      l.CreatedAt,
				MatchedBy:      []string{path},
			})
		}
	}
	add(byEmail, MatchedByEmail)
	add(byName, MatchedByName)

	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := rank(matches[i]), rank(matches[j])
		if ri != rj {
			return ri < rj
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches
}

func rank(m Match) int {
	switch {
	case len(m.MatchedBy) > 1:
		return 0
	case m.MatchedBy[0] == MatchedByEmail:
		return 1
	}
	return 2
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
