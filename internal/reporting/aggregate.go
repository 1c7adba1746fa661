package reporting

import "github.com/xkilldash9x/goap-sim/internal/simulation"

// Aggregate summarizes a set of runs.
type Aggregate struct {
	Runs                  int     `json:"runs"`
	MeanFoodReturned      float64 `json:"mean_food_returned"`
	MinFoodReturned       int     `json:"min_food_returned"`
	MaxFoodReturned       int     `json:"max_food_returned"`
	MeanTreasureDelivered float64 `json:"mean_treasure_delivered"`
	MeanStarving          float64 `json:"mean_starving"`
	MeanGoalsCompleted    float64 `json:"mean_goals_completed"`
	PlanFailures          int     `json:"plan_failures"`
	Aborts                int     `json:"aborts"`
	Gifts                 int     `json:"gifts"`
}

// Summarize aggregates the totals of runs. Nil entries are skipped.
func Summarize(runs []*simulation.Summary) Aggregate {
	var agg Aggregate
	var food, treasure, starving, goals int
	for _, r := range runs {
		if r == nil {
			continue
		}
		t := r.Totals
		if agg.Runs == 0 || t.FoodReturned < agg.MinFoodReturned {
			agg.MinFoodReturned = t.FoodReturned
		}
		if t.FoodReturned > agg.MaxFoodReturned {
			agg.MaxFoodReturned = t.FoodReturned
		}
		agg.Runs++
		food += t.FoodReturned
		treasure += t.TreasureDelivered
		starving += t.Starving
		goals += t.GoalsCompleted
		agg.PlanFailures += t.PlanFailures
		agg.Aborts += t.Aborts
		agg.Gifts += len(r.Gifts)
	}
	if agg.Runs == 0 {
		return agg
	}
	n := float64(agg.Runs)
	agg.MeanFoodReturned = float64(food) / n
	agg.MeanTreasureDelivered = float64(treasure) / n
	agg.MeanStarving = float64(starving) / n
	agg.MeanGoalsCompleted = float64(goals) / n
	return agg
}
