// Copyright (C) 2026 Dyocense AI (eng@dyocense.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package playbook

import "github.com/balureddy003/dyocense-sub002/services/compiler/datatypes"

// Defaults returns the built-in playbook catalogue. Order matters: the
// registry matches first-wins, so more specific templates sit above the
// broader ones.
func Defaults() []datatypes.DecisionPlaybook {
	return []datatypes.DecisionPlaybook{
		{
			ID:          "inventory_baseline",
			Name:        "Inventory Baseline",
			Description: "Reorder-point inventory optimization with seasonal demand.",
			Version:     "1.2.0",
			Keywords:    []string{"inventory", "stock", "reorder", "seasonal", "replenishment"},
			Tags:        []string{"supply-chain", "inventory"},
			PromptGuidelines: "Model per-SKU holding and stockout costs explicitly. " +
				"Demand enters as a parameter map keyed by SKU so scenarios can " +
				"override it. Include service-level constraints and a fill-rate KPI.",
		},
		{
			ID:          "workforce_scheduling",
			Name:        "Workforce Scheduling",
			Description: "Shift and rota assignment under labor rules.",
			Version:     "1.0.1",
			Keywords:    []string{"workforce", "staffing", "shift", "rota", "scheduling"},
			Tags:        []string{"operations", "scheduling"},
			PromptGuidelines: "Decision variables are per-employee shift assignments. " +
				"Encode maximum consecutive days and minimum rest hours as hard " +
				"constraints; overtime cost goes into the objective, not a constraint.",
		},
		{
			ID:          "pricing_promotion",
			Name:        "Pricing & Promotion",
			Description: "Price-point and promotion-mix selection with demand elasticity.",
			Version:     "0.9.0",
			Keywords:    []string{"pricing", "price", "promotion", "discount", "markdown"},
			Tags:        []string{"commercial"},
			PromptGuidelines: "Use elasticity parameters per product segment. Revenue is " +
				"the default objective; margin floors are constraints. KPIs must " +
				"include projected revenue lift against the no-promotion baseline.",
		},
		{
			ID:          "logistics_routing",
			Name:        "Logistics Routing",
			Description: "Fleet routing and delivery consolidation.",
			Version:     "1.1.0",
			Keywords:    []string{"routing", "delivery", "fleet", "logistics", "transport"},
			Tags:        []string{"supply-chain", "logistics"},
			PromptGuidelines: "Minimize total distance or transport cost. Vehicle capacity " +
				"and delivery-window constraints are mandatory. Express stop counts " +
				"and vehicle assignments as integer decision variables.",
		},
	}
}
