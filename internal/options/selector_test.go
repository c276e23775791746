package options

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/tradepilot/internal/upstream"
)

func TestFindOptionsPrice(t *testing.T) {
	assert.Equal(t, 1.3, FindOptionsPrice(1.23, 1.27))
	assert.Equal(t, 0.0, FindOptionsPrice(0, 0)) // falls back to bid
	assert.Equal(t, 0.02, FindOptionsPrice(0.02, 0.03))
}

func leg(putCall string, strike, bid, ask float64, oi, vol int64) *upstream.OptionLeg {
	return &upstream.OptionLeg{
		Symbol:       "XYZ_leg",
		PutCall:      putCall,
		Strike:       strike,
		Bid:          bid,
		Ask:          ask,
		OpenInterest: oi,
		TotalVolume:  vol,
	}
}

func chainWith(days int, strategies ...upstream.OptionStrategy) upstream.ImpliedMove {
	return upstream.ImpliedMove{
		Move: 0.05,
		Chain: upstream.OptionsChain{
			UnderlyingPrice: 100,
			Monthly: []upstream.MonthlyStrategyList{
				{DaysToExp: days, Strategies: strategies},
			},
		},
	}
}

func newTestSelector(stub *upstream.Stub) *Selector {
	return NewSelector(stub, nil, Config{MaxImpliedMove: 0.15, MinExpirationDays: 40})
}

func TestCallStrangleFindsBothLegs(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = chainWith(45,
		upstream.OptionStrategy{
			PrimaryLeg:   leg("CALL", 104, 1.0, 1.2, 400, 50),
			SecondaryLeg: leg("PUT", 93, 0.9, 1.1, 500, 50),
		},
	)

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	require.True(t, got.Complete())
	assert.Equal(t, 104.0, got.Call.Strike)
	assert.Equal(t, 93.0, got.Put.Strike)
	assert.Empty(t, got.Audit)
}

func TestCallStrangleMovementTooHigh(t *testing.T) {
	stub := upstream.NewStub()
	im := chainWith(45)
	im.Move = 0.3
	stub.ImpliedMoves["XYZ"] = im

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Nil(t, got.Call)
	assert.Nil(t, got.Put)
	assert.Contains(t, got.Audit, ReasonMoveTooHigh)
}

func TestCallStrangleMovementAbsent(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = upstream.ImpliedMove{}

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Contains(t, got.Audit, ReasonMoveAbsent)
}

func TestCallStrangleRejectsOutOfBandStrikes(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = chainWith(40,
		upstream.OptionStrategy{
			// Call past the implied band; put inside it (not a hedge).
			PrimaryLeg:   leg("CALL", 110, 1.0, 1.2, 400, 50),
			SecondaryLeg: leg("PUT", 97, 0.9, 1.1, 500, 50),
		},
	)

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Nil(t, got.Call)
	assert.Nil(t, got.Put)
	assert.ElementsMatch(t, []string{ReasonNoCallLeg, ReasonNoPutHedge}, got.Audit)
}

func TestCallStrangleStrictlyImprovingOpenInterest(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = chainWith(40,
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 103, 1.0, 1.2, 400, 50)},
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 104, 1.0, 1.2, 600, 50)},
		// Lower open interest than the incumbent: must not replace it.
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 102, 1.0, 1.2, 500, 50)},
		upstream.OptionStrategy{SecondaryLeg: leg("PUT", 90, 0.9, 1.1, 450, 50)},
	)

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	require.NotNil(t, got.Call)
	assert.Equal(t, int64(600), got.Call.OpenInterest)
}

func TestCallStranglePriceAndVolumeChecks(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = chainWith(40,
		// Contract too cheap: price*100 = 60.
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 103, 0.5, 0.7, 400, 50)},
		// Illiquid: below both thresholds.
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 104, 1.0, 1.2, 100, 100)},
		// Liquid enough via total volume alone.
		upstream.OptionStrategy{PrimaryLeg: leg("CALL", 102, 1.0, 1.2, 100, 300)},
	)

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	require.NotNil(t, got.Call)
	assert.Equal(t, 102.0, got.Call.Strike)
}

func TestCallStrangleWalksExpirations(t *testing.T) {
	stub := upstream.NewStub()
	im := chainWith(55,
		upstream.OptionStrategy{
			PrimaryLeg:   leg("CALL", 104, 1.0, 1.2, 400, 50),
			SecondaryLeg: leg("PUT", 93, 0.9, 1.1, 500, 50),
		},
	)
	// A bucket below the minimum must be skipped entirely.
	im.Chain.Monthly = append([]upstream.MonthlyStrategyList{
		{DaysToExp: 10, Strategies: []upstream.OptionStrategy{
			{PrimaryLeg: leg("CALL", 103, 1.0, 1.2, 900, 900)},
		}},
	}, im.Chain.Monthly...)
	stub.ImpliedMoves["XYZ"] = im

	got, err := newTestSelector(stub).CallStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	require.True(t, got.Complete())
	assert.Equal(t, 104.0, got.Call.Strike)
}

func TestPutStrangleSwapsRoles(t *testing.T) {
	stub := upstream.NewStub()
	stub.ImpliedMoves["XYZ"] = chainWith(40,
		upstream.OptionStrategy{
			// Call beyond the band is now the hedge; put inside the band is
			// the primary leg.
			PrimaryLeg:   leg("CALL", 107, 1.0, 1.2, 400, 50),
			SecondaryLeg: leg("PUT", 96, 0.9, 1.1, 500, 50),
		},
	)

	got, err := newTestSelector(stub).PutStrangle(context.Background(), "XYZ")
	require.NoError(t, err)
	require.True(t, got.Complete())
	assert.Equal(t, 107.0, got.Call.Strike)
	assert.Equal(t, 96.0, got.Put.Strike)
}
