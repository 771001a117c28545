package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

const baseRate = 400

func Test_Rate_EarlyStageTiers(t *testing.T) {
	policy := New(baseRate)

	cases := []struct {
		name    string
		payment id.Amount
		want    uint64
	}{
		{"below low tier gets base rate", id.NativeUnits(4), 400},
		{"low tier boundary", id.NativeUnits(5), 440},
		{"inside low tier", id.NativeUnits(10), 440},
		{"mid tier boundary", id.NativeUnits(11), 460},
		{"inside mid tier", id.NativeUnits(20), 460},
		{"high tier boundary", id.NativeUnits(21), 480},
		{"far above high tier", id.NativeUnits(1000), 480},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Rate(id.StageEarly, tc.payment)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_Rate_BonusStageTiers(t *testing.T) {
	policy := New(baseRate)

	cases := []struct {
		name    string
		payment id.Amount
		want    uint64
	}{
		{"below low tier gets base rate", id.NativeUnits(1), 400},
		{"low tier boundary", id.NativeUnits(5), 410},
		{"mid tier boundary", id.NativeUnits(11), 420},
		{"high tier boundary", id.NativeUnits(21), 440},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Rate(id.StageBonus, tc.payment)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_Rate_MainStageFlat(t *testing.T) {
	policy := New(baseRate)

	for _, payment := range []id.Amount{id.NativeUnits(1), id.NativeUnits(5), id.NativeUnits(100)} {
		got, err := policy.Rate(id.StageMain, payment)
		require.NoError(t, err)
		assert.Equal(t, uint64(baseRate), got, "main stage never grants a bonus")
	}
}

func Test_Rate_FiveUnitScenario(t *testing.T) {
	// A 5 native-unit payment in the early stage lands on the 10% tier:
	// 5 * 440 = 2200 asset units.
	policy := New(baseRate)

	rate, err := policy.Rate(id.StageEarly, id.NativeUnits(5))
	require.NoError(t, err)
	assert.Equal(t, "2200", id.NativeUnits(5).MulRate(rate).String())
}

func Test_Rate_RejectsZeroPayment(t *testing.T) {
	policy := New(baseRate)

	_, err := policy.Rate(id.StageEarly, id.ZeroAmount())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func Test_Rate_Pure(t *testing.T) {
	policy := New(baseRate)

	first, err := policy.Rate(id.StageEarly, id.NativeUnits(21))
	require.NoError(t, err)
	for range 10 {
		again, err := policy.Rate(id.StageEarly, id.NativeUnits(21))
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical inputs must yield identical rates")
	}
}
