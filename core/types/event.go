package types

// Event is the broadcast form of a ledger state change. Type is a dotted
// name such as "staking.slashProcessed" and Attributes carries the
// bech32-encoded addresses and decimal amounts of the transition.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
