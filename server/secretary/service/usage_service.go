package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

// UsageService tracks per-tenant monthly counters against plan limits.
type UsageService struct {
	tenants *repository.TenantRepository
	users   *repository.UserRepository
	usage   *repository.UsageRepository
	// Invalidated when a plan change may move the tenant to a dedicated store.
	invalidate func(tenantID string)
	now        func() time.Time
}

func NewUsageService(tenants *repository.TenantRepository, users *repository.UserRepository, usage *repository.UsageRepository, invalidate func(tenantID string)) *UsageService {
	if invalidate == nil {
		invalidate = func(string) {}
	}
	return &UsageService{
		tenants:    tenants,
		users:      users,
		usage:      usage,
		invalidate: invalidate,
		now:        time.Now,
	}
}

// Record increments the current month's counter. The counter carries a 60 day
// TTL so the previous month stays readable for history queries.
func (s *UsageService) Record(ctx context.Context, tenantID string, usageType domain.UsageType) error {
	return s.usage.Increment(ctx, tenantID, domain.MonthKey(s.now()), usageType)
}

// CheckLimit reads the tenant's plan and current message counter. A missing
// counter counts as zero; a limit of -1 means unlimited.
func (s *UsageService) CheckLimit(ctx context.Context, tenantID string) (domain.UsageCheck, error) {
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return domain.UsageCheck{}, err
	}
	limit := tenant.Plan.Details().MonthlyMessageLimit
	usage, err := s.usage.Count(ctx, tenantID, domain.MonthKey(s.now()), domain.UsageMessage)
	if err != nil {
		return domain.UsageCheck{}, err
	}
	if limit == domain.Unlimited {
		return domain.UsageCheck{Allowed: true, Usage: usage, Limit: domain.Unlimited, Remaining: domain.Unlimited}, nil
	}
	remaining := limit - usage
	if remaining < 0 {
		remaining = 0
	}
	return domain.UsageCheck{Allowed: usage < limit, Usage: usage, Limit: limit, Remaining: remaining}, nil
}

// Gate wraps CheckLimit with the fail-open policy: an infrastructure error
// must never block legitimate traffic, so any failure reports allowed. An
// unregistered tenant is not an infrastructure error and stays denied.
func (s *UsageService) Gate(ctx context.Context, tenantID string) domain.UsageCheck {
	check, err := s.CheckLimit(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.UsageCheck{Allowed: false}
	}
	if err != nil {
		log.Warnf("usage check failed, allowing: tenant=%s err=%v", tenantID, err)
		return domain.UsageCheck{Allowed: true, Limit: domain.Unlimited, Remaining: domain.Unlimited}
	}
	return check
}

type UsageReport struct {
	TenantID      string        `json:"tenantId"`
	Plan          domain.PlanID `json:"plan"`
	PlanName      string        `json:"planName"`
	Month         string        `json:"month"`
	Messages      int           `json:"messages"`
	APICalls      int           `json:"apiCalls"`
	MessageLimit  int           `json:"messageLimit"`
	Employees     int           `json:"employees"`
	EmployeeLimit int           `json:"employeeLimit"`
	Price         int           `json:"price"`
}

func (s *UsageService) GetUsage(ctx context.Context, tenantID string) (UsageReport, error) {
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return UsageReport{}, err
	}
	month := domain.MonthKey(s.now())
	messages, err := s.usage.Count(ctx, tenantID, month, domain.UsageMessage)
	if err != nil {
		return UsageReport{}, err
	}
	apiCalls, err := s.usage.Count(ctx, tenantID, month, domain.UsageAPICall)
	if err != nil {
		return UsageReport{}, err
	}
	employees, err := s.users.Employees(ctx, tenantID)
	if err != nil {
		return UsageReport{}, err
	}
	plan := tenant.Plan.Details()
	return UsageReport{
		TenantID:      tenantID,
		Plan:          tenant.Plan,
		PlanName:      plan.Name,
		Month:         month,
		Messages:      messages,
		APICalls:      apiCalls,
		MessageLimit:  plan.MonthlyMessageLimit,
		Employees:     len(employees),
		EmployeeLimit: plan.EmployeeLimit,
		Price:         plan.Price,
	}, nil
}

// UpgradePlan moves the tenant to a new tier and appends a history entry.
func (s *UsageService) UpgradePlan(ctx context.Context, tenantID string, plan domain.PlanID) (domain.Tenant, error) {
	if !plan.Valid() {
		return domain.Tenant{}, domain.NewValidationError("plan")
	}
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return domain.Tenant{}, err
	}
	previous := tenant.Plan
	now := s.now().UTC()
	tenant.Plan = plan
	tenant.PlanUpdatedAt = &now
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return domain.Tenant{}, err
	}
	entry := fmt.Sprintf(`{"from":%q,"to":%q,"changedAt":%q}`, previous, plan, now.Format(time.RFC3339))
	if err := s.tenants.AppendPlanHistory(ctx, tenantID, entry); err != nil {
		log.Warnf("plan history append failed: tenant=%s err=%v", tenantID, err)
	}
	s.invalidate(tenantID)
	log.Infof("plan upgraded: tenant=%s from=%s to=%s", tenantID, previous, plan)
	return tenant, nil
}

// History reports the trailing months' counters. Counters expire after 60
// days, so months beyond retention read as zero.
func (s *UsageService) History(ctx context.Context, tenantID string, months int) ([]domain.UsageMonth, error) {
	if months <= 0 {
		months = 3
	}
	now := s.now().UTC()
	// Anchor on the first of the month so AddDate cannot skip short months.
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	history := make([]domain.UsageMonth, 0, months)
	for i := 0; i < months; i++ {
		month := domain.MonthKey(anchor.AddDate(0, -i, 0))
		messages, err := s.usage.Count(ctx, tenantID, month, domain.UsageMessage)
		if err != nil {
			return nil, err
		}
		apiCalls, err := s.usage.Count(ctx, tenantID, month, domain.UsageAPICall)
		if err != nil {
			return nil, err
		}
		history = append(history, domain.UsageMonth{Month: month, Messages: messages, APICalls: apiCalls})
	}
	return history, nil
}
