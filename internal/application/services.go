package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

type DocumentExpiry struct {
	Document  domain.ExpiryDocument `json:"document"`
	ExpiresOn *domain.Date          `json:"expires_on"`
	DaysLeft  *int                  `json:"days_left"`
	Urgency   domain.Urgency        `json:"urgency"`
}

type WorkerSummary struct {
	ID               string           `json:"id"`
	FullName         string           `json:"full_name"`
	Department       string           `json:"department"`
	JobTitle         string           `json:"job_title"`
	VisaType         string           `json:"visa_type"`
	Status           string           `json:"status"`
	Expiries         []DocumentExpiry `json:"expiries"`
	Urgency          domain.Urgency   `json:"urgency"`
	ChecklistPercent int              `json:"checklist_percent"`
}

// Expiry returns the entry for doc; every summary carries all documents.
func (s WorkerSummary) Expiry(doc domain.ExpiryDocument) DocumentExpiry {
	for _, e := range s.Expiries {
		if e.Document == doc {
			return e
		}
	}
	return DocumentExpiry{Document: doc, Urgency: domain.UrgencyOK}
}

// soonest is the smallest known day count across documents, nil if none.
func (s WorkerSummary) soonest() *int {
	var best *int
	for _, e := range s.Expiries {
		if e.DaysLeft != nil && (best == nil || *e.DaysLeft < *best) {
			best = e.DaysLeft
		}
	}
	return best
}

func Summarize(w domain.Worker, now time.Time) (WorkerSummary, error) {
	out := WorkerSummary{
		ID:               w.ID,
		FullName:         w.FullName,
		Department:       w.Department,
		JobTitle:         w.JobTitle,
		VisaType:         w.VisaType,
		Status:           w.Status,
		Urgency:          domain.UrgencyOK,
		ChecklistPercent: domain.ChecklistPercent(w.ChecklistCompleted, w.ChecklistTotal),
	}
	for _, doc := range domain.ExpiryDocuments {
		expires := w.Expiry(doc)
		days, err := domain.DaysUntil(now, expires)
		if err != nil {
			return WorkerSummary{}, fmt.Errorf("worker %s %s expiry: %w", w.ID, doc, err)
		}
		urgency := domain.UrgencyBucketFor(days)
		out.Expiries = append(out.Expiries, DocumentExpiry{Document: doc, ExpiresOn: expires, DaysLeft: days, Urgency: urgency})
		if urgency.Rank() < out.Urgency.Rank() {
			out.Urgency = urgency
		}
	}
	return out, nil
}

type ExpiryOverview struct {
	Counts       domain.UrgencyCounts `json:"counts"`
	Within30Days int                  `json:"within_30_days"`
	Within60Days int                  `json:"within_60_days"`
	Within90Days int                  `json:"within_90_days"`
}

type Dashboard struct {
	TotalWorkers int                                      `json:"total_workers"`
	Expiries     map[domain.ExpiryDocument]ExpiryOverview `json:"expiries"`
	Attention    []WorkerSummary                          `json:"attention"`
}

type ComplianceService struct {
	api   ports.ComplianceAPI
	clock ports.Clock
}

func NewComplianceService(api ports.ComplianceAPI, clock ports.Clock) *ComplianceService {
	if clock == nil {
		clock = time.Now
	}
	return &ComplianceService{api: api, clock: clock}
}

func (s *ComplianceService) Workers(ctx context.Context, credential domain.Credential) ([]WorkerSummary, error) {
	workers, err := s.api.ListWorkers(ctx, credential)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	out := make([]WorkerSummary, 0, len(workers))
	for _, w := range workers {
		summary, err := Summarize(w, now)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *ComplianceService) Dashboard(ctx context.Context, credential domain.Credential) (Dashboard, error) {
	summaries, err := s.Workers(ctx, credential)
	if err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{
		TotalWorkers: len(summaries),
		Expiries:     map[domain.ExpiryDocument]ExpiryOverview{},
		Attention:    []WorkerSummary{},
	}
	for _, doc := range domain.ExpiryDocuments {
		var counts domain.UrgencyCounts
		for _, summary := range summaries {
			counts.Add(summary.Expiry(doc).Urgency)
		}
		out.Expiries[doc] = ExpiryOverview{
			Counts:       counts,
			Within30Days: counts.ExpiringWithin(domain.CriticalWithinDays),
			Within60Days: counts.ExpiringWithin(domain.WarningWithinDays),
			Within90Days: counts.ExpiringWithin(domain.MonitorWithinDays),
		}
	}
	for _, summary := range summaries {
		if summary.Urgency == domain.UrgencyExpired || summary.Urgency == domain.UrgencyCritical {
			out.Attention = append(out.Attention, summary)
		}
	}
	slices.SortStableFunc(out.Attention, func(a, b WorkerSummary) int {
		return *a.soonest() - *b.soonest()
	})
	return out, nil
}

func (s *ComplianceService) Worker(ctx context.Context, credential domain.Credential, workerID string) (WorkerSummary, error) {
	w, err := s.api.GetWorker(ctx, credential, workerID)
	if err != nil {
		return WorkerSummary{}, err
	}
	return Summarize(w, s.clock())
}

// PortalRecord returns the worker record linked to an employee identity.
func (s *ComplianceService) PortalRecord(ctx context.Context, credential domain.Credential, identity domain.Identity) (WorkerSummary, error) {
	if identity.WorkerID == nil || *identity.WorkerID == "" {
		return WorkerSummary{}, fmt.Errorf("identity %s has no linked worker: %w", identity.ID, domain.ErrNotFound)
	}
	return s.Worker(ctx, credential, *identity.WorkerID)
}
