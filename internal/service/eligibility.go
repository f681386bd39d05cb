package service

// maxAllotments are monthly benefit ceilings by household size (2024 fiscal
// year, 48 contiguous states). Sizes past the table add a flat increment.
var maxAllotments = []float64{0, 291, 535, 766, 973, 1155, 1386, 1532, 1751}

const perAdditionalMember = 219.0

// EstimateBenefit is an advisory monthly benefit estimate from the
// extracted household size and income: the max allotment for the household
// minus 30% of monthly income, floored at zero. Purely informational; real
// eligibility is determined by a caseworker.
func EstimateBenefit(householdSize int, monthlyIncome float64) float64 {
	if householdSize <= 0 {
		return 0
	}

	var max float64
	if householdSize < len(maxAllotments) {
		max = maxAllotments[householdSize]
	} else {
		max = maxAllotments[len(maxAllotments)-1] + float64(householdSize-len(maxAllotments)+1)*perAdditionalMember
	}

	benefit := max - 0.3*monthlyIncome
	if benefit < 0 {
		return 0
	}
	return benefit
}
