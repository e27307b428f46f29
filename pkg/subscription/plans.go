package subscription

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type planFile struct {
	Plans []planYAML `yaml:"plans"`
}

type planYAML struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	MonthlyPrice string   `yaml:"monthly_price"`
	YearlyPrice  string   `yaml:"yearly_price"`
	Benefits     []string `yaml:"benefits"`
	Limitations  []string `yaml:"limitations"`
	Active       *bool    `yaml:"active"`
}

// LoadPlansYAML reads a plan catalog:
//
//	plans:
//	  - id: pro
//	    name: Pro
//	    monthly_price: 60000
//	    yearly_price: 576000
//	    benefits: ["Hasta 500 posts mensuales"]
//
// Plans are active unless "active: false" is set.
func LoadPlansYAML(r io.Reader) ([]Plan, error) {
	var f planFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Join(ErrLoadPlans, err)
	}

	seen := make(map[string]struct{}, len(f.Plans))
	plans := make([]Plan, 0, len(f.Plans))
	for i, py := range f.Plans {
		monthly, err := parsePrice(py.MonthlyPrice)
		if err != nil {
			return nil, errors.Join(ErrLoadPlans, fmt.Errorf("plan %d monthly_price: %w", i, err))
		}
		yearly, err := parsePrice(py.YearlyPrice)
		if err != nil {
			return nil, errors.Join(ErrLoadPlans, fmt.Errorf("plan %d yearly_price: %w", i, err))
		}

		p := Plan{
			ID:           strings.TrimSpace(py.ID),
			Name:         py.Name,
			Description:  py.Description,
			MonthlyPrice: monthly,
			YearlyPrice:  yearly,
			Benefits:     py.Benefits,
			Limitations:  py.Limitations,
			Active:       py.Active == nil || *py.Active,
		}
		if err := validatePlan(p); err != nil {
			return nil, errors.Join(ErrLoadPlans, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Join(ErrLoadPlans, fmt.Errorf("%w: duplicate plan id %q", ErrInvalidPlan, p.ID))
		}
		seen[p.ID] = struct{}{}
		plans = append(plans, p)
	}
	return plans, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// Validate checks the plan can be stored and referenced from a correlation key.
func (p Plan) Validate() error {
	return validatePlan(p)
}

func validatePlan(p Plan) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: empty plan id", ErrInvalidPlan)
	case strings.Contains(p.ID, "|"):
		return fmt.Errorf("%w: plan id %q contains '|'", ErrInvalidPlan, p.ID)
	case p.Name == "":
		return fmt.Errorf("%w: plan %q has no name", ErrInvalidPlan, p.ID)
	case p.MonthlyPrice.IsNegative() || p.YearlyPrice.IsNegative():
		return fmt.Errorf("%w: plan %q has a negative price", ErrInvalidPlan, p.ID)
	}
	return nil
}
