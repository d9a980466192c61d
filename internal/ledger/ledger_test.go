package ledger_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/internal/fakes"
	"github.com/atlas-desktop/strategy-engine/internal/ledger"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

const (
	trader   = types.TraderID("T1")
	strategy = types.StrategyID("S1")
)

// exitIDs mints sequential ids for the exit orders the ledger builds
// when flattening.
func exitIDs() func() types.OrderID {
	n := 0
	return func() types.OrderID {
		n++
		return types.OrderID(fmt.Sprintf("O-EXIT-%d", n))
	}
}

func atomicOrder(entryID, slID, tpID types.OrderID) types.AtomicOrder {
	price := decimal.NewFromFloat(1.2000)
	return types.AtomicOrder{
		Entry: types.Order{ID: entryID, Side: types.OrderSideBuy, Quantity: decimal.NewFromInt(1), Purpose: types.PurposeEntry, State: types.OrderStateInitialized},
		StopLoss: types.Order{ID: slID, Side: types.OrderSideSell, Quantity: decimal.NewFromInt(1), Price: &price, Purpose: types.PurposeStopLoss, State: types.OrderStateInitialized},
		TakeProfit: &types.Order{ID: tpID, Side: types.OrderSideSell, Quantity: decimal.NewFromInt(1), Price: &price, Purpose: types.PurposeTakeProfit, State: types.OrderStateInitialized},
	}
}

// scenario 1: atomic rejection cascade.
func TestAtomicRejectionCascade(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	positionID := types.PositionID("P1")
	position := types.Position{
		ID:             positionID,
		MarketPosition: types.MarketPositionLong,
		Quantity:       decimal.NewFromInt(1),
		EntryOrder:     types.Order{ID: "O1", Side: types.OrderSideBuy},
		Fills:          []types.Fill{{OrderID: "O1", Price: decimal.NewFromFloat(1.2), Quantity: decimal.NewFromInt(1)}},
	}
	exec.SeedPosition(strategy, position)

	l := ledger.New(zap.NewNop(), trader, strategy, exec, exec, exitIDs(), true)

	atomic := atomicOrder("O1", "O2", "O3")
	require.NoError(t, l.SubmitAtomicOrder(atomic, positionID))

	rejected := exec.Reject("O1", "venue rejected", time.Now())
	require.NoError(t, l.Reduce(rejected))

	for _, id := range []types.OrderID{"O1", "O2", "O3"} {
		_, ok := l.PurposeOf(id)
		assert.False(t, ok, "order %s should be removed from all registers", id)
	}

	entries, stopLosses, takeProfits, atomicParents, _ := l.Residuals()
	assert.Empty(t, entries)
	assert.Empty(t, stopLosses)
	assert.Empty(t, takeProfits)
	assert.Empty(t, atomicParents)

	var sawFlatten bool
	for _, cmd := range exec.Commands {
		if cmd.Kind == types.CommandSubmitOrder && cmd.Order.Purpose == types.PurposeExit {
			sawFlatten = true
			assert.Equal(t, positionID, cmd.PositionID)
		}
	}
	assert.True(t, sawFlatten, "expected a flatten market order to be submitted for P1")
}

// scenario 2: modify coalescing.
func TestModifyCoalescing(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	l := ledger.New(zap.NewNop(), trader, strategy, exec, exec, exitIDs(), false)

	order := types.Order{ID: "O1", Side: types.OrderSideBuy, Quantity: decimal.NewFromInt(1)}

	require.NoError(t, l.ModifyOrder(order, decimal.NewFromFloat(1.2000)))
	require.NoError(t, l.ModifyOrder(order, decimal.NewFromFloat(1.2005)))

	exec.SetCurrentPrice("O1", decimal.NewFromFloat(1.2000))
	ack := exec.Modified("O1", time.Now())
	require.NoError(t, l.Reduce(ack))

	var modifyCmds []types.Command
	for _, cmd := range exec.Commands {
		if cmd.Kind == types.CommandModifyOrder {
			modifyCmds = append(modifyCmds, cmd)
		}
	}
	// One from the user's first call (the second only replaces the
	// buffered price), plus one re-issue from the drain.
	require.Len(t, modifyCmds, 2)
	assert.True(t, modifyCmds[1].NewPrice.Equal(decimal.NewFromFloat(1.2005)))
}

func TestOrderFilledRemovesFromRegistersAndParentMap(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	l := ledger.New(zap.NewNop(), trader, strategy, exec, exec, exitIDs(), false)

	atomic := atomicOrder("O1", "O2", "O3")
	require.NoError(t, l.SubmitAtomicOrder(atomic, "P1"))

	filled := exec.Fill("O1", decimal.NewFromFloat(1.2), decimal.NewFromInt(1), time.Now())
	require.NoError(t, l.Reduce(filled))

	_, ok := l.PurposeOf("O1")
	assert.False(t, ok)
	// A filled parent releases its children to be tracked independently.
	_, ok = l.PurposeOf("O2")
	assert.True(t, ok)
	_, ok = l.PurposeOf("O3")
	assert.True(t, ok)
}

func TestFlattenPositionSkipsAlreadyFlat(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	flat := types.Position{ID: "P1", MarketPosition: types.MarketPositionFlat, EntryOrder: types.Order{ID: "O1"}}
	exec.SeedPosition(strategy, flat)

	l := ledger.New(zap.NewNop(), trader, strategy, exec, exec, exitIDs(), false)
	require.NoError(t, l.FlattenPosition("P1"))

	for _, cmd := range exec.Commands {
		assert.NotEqual(t, types.PurposeExit, cmd.Order.Purpose)
	}
}

func TestFlattenAllPositionsNoActivePositions(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	l := ledger.New(zap.NewNop(), trader, strategy, exec, exec, exitIDs(), false)
	assert.NoError(t, l.FlattenAllPositions())
}
