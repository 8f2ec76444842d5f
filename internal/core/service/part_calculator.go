package service

import "github.com/rl1809/production-schedule/internal/core/domain"

// ComputePartQuantities scales every part of a bill-of-parts to total units,
// keeping input order. Parts whose names only differ by case are merged into
// the first of them. The returned parts carry no ids.
func ComputePartQuantities(parts []domain.Part, total int) ([]domain.ScheduledPart, error) {
	if total < 1 || total > domain.MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	out := make([]domain.ScheduledPart, 0, len(parts))
	units := make([]int, 0, len(parts))
	seen := make(map[string]int, len(parts))
	for _, p := range parts {
		i, ok := seen[partKey(p.Name)]
		if !ok {
			i = len(out)
			seen[partKey(p.Name)] = i
			out = append(out, domain.ScheduledPart{
				Name:         p.Name,
				Measurements: copyString(p.Measurements),
			})
			units = append(units, 0)
		}
		units[i] += p.UnitQuantity
		if units[i] > 0 && total > domain.MaxQuantity/units[i] {
			return nil, ErrInvalidQuantity
		}
		out[i].Quantity = units[i] * total
	}
	return out, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
