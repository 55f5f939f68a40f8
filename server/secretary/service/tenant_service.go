package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

type TenantService struct {
	tenants *repository.TenantRepository
	users   *repository.UserRepository
	pub     EventPublisher
	now     func() time.Time
}

func NewTenantService(tenants *repository.TenantRepository, users *repository.UserRepository, pub EventPublisher) *TenantService {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &TenantService{tenants: tenants, users: users, pub: pub, now: time.Now}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// tenantIDFor slugifies the company name and appends a random fragment so
// two companies with the same name never collide.
func tenantIDFor(companyName string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(companyName)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "tenant"
	}
	return slug + "-" + uuid.NewString()[:8]
}

// CreateTenant provisions an isolated org on the free plan, registering the
// creator as its first executive.
func (s *TenantService) CreateTenant(ctx context.Context, companyName, adminUserID, adminName string) (domain.Tenant, domain.User, error) {
	switch {
	case strings.TrimSpace(companyName) == "":
		return domain.Tenant{}, domain.User{}, domain.NewValidationError("companyName")
	case strings.TrimSpace(adminUserID) == "":
		return domain.Tenant{}, domain.User{}, domain.NewValidationError("adminUserId")
	}
	now := s.now().UTC()
	tenant := domain.Tenant{
		TenantID:    tenantIDFor(companyName),
		CompanyName: companyName,
		CreatedAt:   now,
		Plan:        domain.PlanFree,
		IsActive:    true,
		Settings: domain.TenantSettings{
			NotificationHours:  domain.HourWindow{Start: 8, End: 22},
			UrgentAlwaysNotify: true,
			Language:           "en",
		},
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return domain.Tenant{}, domain.User{}, err
	}
	if adminName == "" {
		adminName = "Admin"
	}
	admin := domain.User{
		UserID:       adminUserID,
		Name:         adminName,
		TenantID:     tenant.TenantID,
		Role:         domain.UserRoleExecutive,
		IsAdmin:      true,
		RegisteredAt: now,
	}
	if err := s.users.Put(ctx, admin); err != nil {
		return domain.Tenant{}, domain.User{}, err
	}
	_ = s.pub.Publish(ctx, tenant.TenantID, "tenant.created", tenant)
	log.Infof("tenant created: tenant=%s company=%q admin=%s", tenant.TenantID, companyName, adminUserID)
	return tenant, admin, nil
}

type AddUserInput struct {
	TenantID   string          `json:"tenantId"`
	UserID     string          `json:"userId"`
	Name       string          `json:"name"`
	Department string          `json:"department"`
	Role       domain.UserRole `json:"role"`
}

// AddUser registers a user under a tenant, routed into the executives or
// employees set by role. Employee headcount is gated by the tenant's plan.
func (s *TenantService) AddUser(ctx context.Context, in AddUserInput) (domain.User, error) {
	switch {
	case strings.TrimSpace(in.TenantID) == "":
		return domain.User{}, domain.NewValidationError("tenantId")
	case strings.TrimSpace(in.UserID) == "":
		return domain.User{}, domain.NewValidationError("userId")
	case strings.TrimSpace(in.Name) == "":
		return domain.User{}, domain.NewValidationError("name")
	}
	role := in.Role
	if role == "" {
		role = domain.UserRoleEmployee
	}
	if role != domain.UserRoleExecutive && role != domain.UserRoleEmployee {
		return domain.User{}, domain.NewValidationError("role")
	}
	tenant, err := s.tenants.Get(ctx, in.TenantID)
	if err != nil {
		return domain.User{}, err
	}
	if role == domain.UserRoleEmployee {
		limit := tenant.Plan.Details().EmployeeLimit
		if limit != domain.Unlimited {
			employees, err := s.users.Employees(ctx, in.TenantID)
			if err != nil {
				return domain.User{}, err
			}
			if len(employees) >= limit {
				return domain.User{}, domain.ErrEmployeeLimitReached
			}
		}
	}
	user := domain.User{
		UserID:       in.UserID,
		Name:         in.Name,
		Department:   in.Department,
		TenantID:     in.TenantID,
		Role:         role,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.users.Put(ctx, user); err != nil {
		return domain.User{}, err
	}
	_ = s.pub.Publish(ctx, in.TenantID, "user.added", user)
	return user, nil
}

func (s *TenantService) ListUsers(ctx context.Context, tenantID string) ([]domain.User, error) {
	return s.users.List(ctx, tenantID)
}

func (s *TenantService) GetEmployee(ctx context.Context, tenantID, userID string) (domain.User, error) {
	return s.users.Get(ctx, tenantID, userID)
}

type EmployeePatch struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
}

func (s *TenantService) UpdateEmployee(ctx context.Context, tenantID, userID string, patch EmployeePatch) (domain.User, error) {
	user, err := s.users.Get(ctx, tenantID, userID)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Department != nil {
		user.Department = *patch.Department
	}
	updated := s.now().UTC()
	user.UpdatedAt = &updated
	if err := s.users.Put(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeleteEmployee removes the record, the global sender mapping, and every
// tenant membership set entry.
func (s *TenantService) DeleteEmployee(ctx context.Context, tenantID, userID string) error {
	if _, err := s.users.Get(ctx, tenantID, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, tenantID, userID); err != nil {
		return err
	}
	_ = s.pub.Publish(ctx, tenantID, "user.deleted", map[string]string{"userId": userID})
	return nil
}

func (s *TenantService) GetTenant(ctx context.Context, tenantID string) (domain.Tenant, error) {
	return s.tenants.Get(ctx, tenantID)
}

// ListTenants is the admin console view across all orgs.
func (s *TenantService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	return s.tenants.List(ctx)
}
