// Package scoring turns the per-dataset artifacts into a normalized,
// weighted composite ranking. Every metric and category score lives on
// the same 0-100 scale so contributions stay independently readable.
package scoring

// Direction says which end of a metric's raw distribution is good.
type Direction int

const (
	LowerIsBetter Direction = iota
	HigherIsBetter
)

// ZeroMeans disambiguates a raw value of zero. Zero complaints is the
// best possible outcome, zero development applications is the worst, and
// a zero approval share just means nothing was decided yet.
type ZeroMeans int

const (
	ZeroBest ZeroMeans = iota
	ZeroWorst
	ZeroNoData
)

// Metric names, shared between the policy table and the weight config.
const (
	MetricCrimeRate            = "crime_rate"
	MetricRequestsRate         = "requests_rate"
	MetricRoadComplaintDensity = "road_complaint_density"
	MetricDevelopmentRecent    = "development_recent"
	MetricApprovalShare        = "development_approval_share"
	MetricFoodViolationAvg     = "food_violation_avg"
	MetricEstablishments       = "establishments_per_1000"
)

// Score categories.
const (
	CategorySafety = "safety"
	CategoryUpkeep = "upkeep"
	CategoryGrowth = "growth"
	CategoryFood   = "food"
)

// MetricPolicy binds one metric to its category, direction, and zero
// interpretation.
type MetricPolicy struct {
	Metric    string
	Category  string
	Direction Direction
	ZeroMeans ZeroMeans
}

// StandardPolicies returns the full metric policy table.
func StandardPolicies() []MetricPolicy {
	return []MetricPolicy{
		{Metric: MetricCrimeRate, Category: CategorySafety, Direction: LowerIsBetter, ZeroMeans: ZeroBest},
		{Metric: MetricRequestsRate, Category: CategoryUpkeep, Direction: LowerIsBetter, ZeroMeans: ZeroBest},
		{Metric: MetricRoadComplaintDensity, Category: CategoryUpkeep, Direction: LowerIsBetter, ZeroMeans: ZeroBest},
		{Metric: MetricDevelopmentRecent, Category: CategoryGrowth, Direction: HigherIsBetter, ZeroMeans: ZeroWorst},
		{Metric: MetricApprovalShare, Category: CategoryGrowth, Direction: HigherIsBetter, ZeroMeans: ZeroNoData},
		{Metric: MetricFoodViolationAvg, Category: CategoryFood, Direction: LowerIsBetter, ZeroMeans: ZeroBest},
		{Metric: MetricEstablishments, Category: CategoryFood, Direction: HigherIsBetter, ZeroMeans: ZeroWorst},
	}
}
