package domain

type PlanID string

const (
	PlanFree       PlanID = "free"
	PlanBasic      PlanID = "basic"
	PlanPremium    PlanID = "premium"
	PlanEnterprise PlanID = "enterprise"
)

// Unlimited is the sentinel limit for enterprise quotas.
const Unlimited = -1

type Plan struct {
	Name                string `json:"name"`
	MonthlyMessageLimit int    `json:"monthlyMessageLimit"`
	EmployeeLimit       int    `json:"employeeLimit"`
	Price               int    `json:"price"`
}

var Plans = map[PlanID]Plan{
	PlanFree:       {Name: "Free", MonthlyMessageLimit: 100, EmployeeLimit: 5, Price: 0},
	PlanBasic:      {Name: "Basic", MonthlyMessageLimit: 1000, EmployeeLimit: 20, Price: 5000},
	PlanPremium:    {Name: "Premium", MonthlyMessageLimit: 10000, EmployeeLimit: 100, Price: 20000},
	PlanEnterprise: {Name: "Enterprise", MonthlyMessageLimit: Unlimited, EmployeeLimit: Unlimited, Price: 50000},
}

func (p PlanID) Valid() bool {
	_, ok := Plans[p]
	return ok
}

// Details resolves the plan table entry, falling back to the free tier for
// records written before the plan field existed.
func (p PlanID) Details() Plan {
	if plan, ok := Plans[p]; ok {
		return plan
	}
	return Plans[PlanFree]
}
