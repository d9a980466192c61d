package engine

import "github.com/atlas-desktop/strategy-engine/pkg/types"

// Config is the set of lifecycle options a Host honors. It is populated
// by internal/config from viper (see cmd/enginehost) and supplied to
// Host at construction time.
type Config struct {
	Trader   types.TraderID
	Strategy types.StrategyID

	// FlattenOnSLReject: on OrderRejected for an order registered as
	// STOP_LOSS, flatten the associated position.
	FlattenOnSLReject bool

	// FlattenOnStop: as above, during stop().
	FlattenOnStop bool

	// CancelAllOrdersOnStop: issue CancelOrder for every active order
	// owned by this strategy during stop(), except EXIT orders.
	CancelAllOrdersOnStop bool

	// BarCapacity bounds bars retained per BarType; must be positive.
	BarCapacity int
}
