package registration

import (
	"context"
	"fmt"
	"time"

	"wildenergy/internal/apperr"
	"wildenergy/internal/catalog"
	"wildenergy/internal/course"
	"wildenergy/internal/logger"
	"wildenergy/internal/member"
	"wildenergy/internal/metrics"
	"wildenergy/internal/subscription"

	"github.com/sethvargo/go-retry"
)

const (
	FundingAllocation = "allocation"
	FundingGuest      = "guest"
)

type Service struct {
	repo     Repository
	ledger   LedgerInterface
	detector *Detector
	courses  course.Repository
	subs     subscription.Repository
	catalog  catalog.Repository
	members  member.Repository
	notifier Notifier

	refundCutoff time.Duration
}

func NewService(
	repo Repository,
	ledger LedgerInterface,
	courses course.Repository,
	subs subscription.Repository,
	cat catalog.Repository,
	members member.Repository,
	notifier Notifier,
	refundCutoff time.Duration,
) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledger,
		detector:     NewDetector(repo),
		courses:      courses,
		subs:         subs,
		catalog:      cat,
		members:      members,
		notifier:     notifier,
		refundCutoff: refundCutoff,
	}
}

// Register books memberID onto a course. The flow is: reject past
// courses, pick a funding source, report overlaps unless force is set,
// then reserve atomically. A lost concurrency race is retried once.
func (s *Service) Register(ctx context.Context, memberID, courseID int, req RegisterRequest) (*RegisterResponse, error) {
	inst, err := s.courses.GetWithClassByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if !time.Now().Before(inst.StartAt) {
		return nil, apperr.State("course_already_started", "cannot register for a course that already started")
	}

	allocationID, funding, err := s.pickFunding(ctx, memberID, inst.CategoryID, req.AllowGuest)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		conflicts, err := s.detector.FindOverlaps(ctx, memberID, &inst.Instance)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return &RegisterResponse{Conflicts: conflicts}, nil
		}
	}

	params := ReserveParams{
		MemberID:     memberID,
		CourseID:     courseID,
		AllocationID: allocationID,
		Guest:        funding == FundingGuest,
		QRToken:      newQRToken(memberID, courseID),
		Notes:        req.Notes,
	}
	reg, err := s.reserveWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	metrics.RecordRegistration(funding)
	logger.Info("Member registered",
		"member_id", memberID,
		"course_id", courseID,
		"funding", funding,
	)

	if s.notifier != nil {
		if m, err := s.members.FindByID(ctx, memberID); err == nil {
			s.notifier.SendRegistrationConfirmation(ctx, m.Email, m.Name, inst.ClassName, reg.QRToken, inst.StartAt)
		}
	}

	return &RegisterResponse{Registration: reg, Funding: funding}, nil
}

// pickFunding walks the member's active subscriptions for an
// allocation whose group covers the course's category and still has
// sessions. When none qualifies the registration can fall back to a
// guest spot if the caller allows it.
func (s *Service) pickFunding(ctx context.Context, memberID, categoryID int, allowGuest bool) (*int, string, error) {
	subs, err := s.subs.ListActiveByMember(ctx, memberID)
	if err != nil {
		return nil, "", err
	}
	if len(subs) == 0 {
		if allowGuest {
			return nil, FundingGuest, nil
		}
		return nil, "", apperr.Conflict("no_active_subscription", "member has no active subscription")
	}

	ix, err := s.catalog.GroupIndex(ctx)
	if err != nil {
		return nil, "", err
	}

	for _, sub := range subs {
		for _, alloc := range sub.Allocations {
			if alloc.SessionsRemaining > 0 && ix.Contains(categoryID, alloc.GroupID) {
				id := alloc.ID
				return &id, FundingAllocation, nil
			}
		}
	}

	if allowGuest {
		return nil, FundingGuest, nil
	}
	return nil, "", apperr.Conflict("no_sessions_remaining", "no sessions remaining for this class category")
}

func (s *Service) reserveWithRetry(ctx context.Context, params ReserveParams) (*Registration, error) {
	var reg *Registration
	backoff := retry.WithMaxRetries(1, retry.NewConstant(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		reg, err = s.ledger.Reserve(ctx, params)
		if apperr.IsConcurrency(err) {
			logger.Warn("Retrying reservation after lost race",
				"member_id", params.MemberID,
				"course_id", params.CourseID,
			)
			return retry.RetryableError(err)
		}
		return err
	})
	return reg, err
}

// Cancel releases a registration. Members can cancel only their own
// bookings and only before the course starts; admins can cancel any
// time and force the session refund.
func (s *Service) Cancel(ctx context.Context, memberID, registrationID int, req CancelRequest, isAdmin bool) (*ReleaseResult, error) {
	reg, err := s.repo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && reg.MemberID != memberID {
		return nil, apperr.NotFound("registration_not_found", "registration not found")
	}

	inst, err := s.courses.GetWithClassByID(ctx, reg.CourseID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !isAdmin && !now.Before(inst.StartAt) {
		return nil, apperr.State("course_already_started", "cannot cancel after the course started")
	}

	params := ReleaseParams{
		RegistrationID: registrationID,
		ForceRefund:    isAdmin && req.ForceRefund,
		RefundCutoff:   s.refundCutoff,
		Now:            now,
	}
	res, err := s.ledger.Release(ctx, params)
	if err != nil {
		return nil, err
	}

	metrics.RecordCancellation(res.Refunded)
	logger.Info("Registration cancelled",
		"registration_id", registrationID,
		"member_id", reg.MemberID,
		"refunded", res.Refunded,
	)

	if s.notifier != nil {
		if m, err := s.members.FindByID(ctx, reg.MemberID); err == nil {
			s.notifier.SendCancellationNotice(ctx, m.Email, m.Name, inst.ClassName, inst.StartAt, res.Refunded)
		}
	}

	return res, nil
}

// BulkRegister registers a batch of members at once on behalf of an
// admin. Failures are collected per member rather than aborting the
// batch, overlaps are not checked, and capacity may be exceeded.
func (s *Service) BulkRegister(ctx context.Context, courseID int, req BulkRegisterRequest) (*BulkRegisterResult, error) {
	inst, err := s.courses.GetWithClassByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !time.Now().Before(inst.StartAt) {
		return nil, apperr.State("course_already_started", "cannot register for a course that already started")
	}

	result := &BulkRegisterResult{Items: make([]BulkRegisterItem, 0, len(req.MemberIDs))}
	for _, memberID := range req.MemberIDs {
		item := BulkRegisterItem{MemberID: memberID}

		allocationID, funding, err := s.pickFunding(ctx, memberID, inst.CategoryID, true)
		if err == nil {
			params := ReserveParams{
				MemberID:      memberID,
				CourseID:      courseID,
				AllocationID:  allocationID,
				Guest:         funding == FundingGuest,
				AdminOverride: true,
				QRToken:       newQRToken(memberID, courseID),
				Notes:         "admin bulk registration",
			}
			item.Registration, err = s.reserveWithRetry(ctx, params)
		}

		if err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			metrics.RecordRegistration(funding)
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	logger.Info(fmt.Sprintf("Bulk registration on course %d: %d succeeded, %d failed",
		courseID, result.Succeeded, result.Failed))
	return result, nil
}

// FindConflicts previews the overlaps a registration on courseID would
// report, without registering.
func (s *Service) FindConflicts(ctx context.Context, memberID, courseID int) ([]Overlap, error) {
	inst, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.detector.FindOverlaps(ctx, memberID, inst)
}

// MarkAbsent records a no-show. The consumed session stays consumed.
func (s *Service) MarkAbsent(ctx context.Context, registrationID int) error {
	if err := s.repo.MarkAbsent(ctx, registrationID); err != nil {
		return err
	}
	logger.Info("Registration marked absent", "registration_id", registrationID)
	return nil
}

// ListMine returns the member's registrations with course details.
func (s *Service) ListMine(ctx context.Context, memberID int) ([]RegistrationWithCourse, error) {
	return s.repo.ListByMember(ctx, memberID)
}
