package domain

// Venue identifies a simulated execution destination.
type Venue string

const (
	VenueRaydium Venue = "RAYDIUM"
	VenueMeteora Venue = "METEORA"
)

// Quote is a venue's offer for a trade: the output amount obtainable for the
// requested input amount, after variance and liquidity-depth impact. Quotes
// are ephemeral and never persisted.
//
// Fee is the venue's proportional fee rate. It is informational only and is
// never subtracted from Price during selection or settlement.
type Quote struct {
	Venue Venue
	Price float64
	Fee   float64
}

// Receipt is the result of a successful settlement. ExecutedPrice is
// independently perturbed from the venue's base price and generally differs
// from the quoted price (final-fill slippage).
type Receipt struct {
	TxHash        string
	ExecutedPrice float64
}
