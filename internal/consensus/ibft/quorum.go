package ibft

// CalculateRequiredValidatorQuorum returns floor(2N/3)+1, the number of
// validators that must agree for a decision at a height with N validators.
func CalculateRequiredValidatorQuorum(validatorCount int) int {
	return 2*validatorCount/3 + 1
}

// PrepareMessageCountForQuorum is the number of Prepares, besides the proposal
// itself, that make a round prepared.
func PrepareMessageCountForQuorum(quorum int) int {
	return quorum - 1
}
