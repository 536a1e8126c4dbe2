package sdkerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolTypeMatchesInputValidation(t *testing.T) {
	err := PoolType("Add Liquidity Unbalanced", "GyroE", "Use Add Liquidity Proportional")

	require.ErrorIs(t, err, ErrPoolType)
	require.ErrorIs(t, err, ErrInputValidation)
	require.NotErrorIs(t, err, ErrQuery)
	require.Contains(t, err.Error(), "Proportional")
}

func TestQueryUnwrapsCollaborator(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("add liquidity: %w", Query("Add Liquidity Unbalanced", cause))

	require.ErrorIs(t, err, ErrQuery)
	require.ErrorIs(t, err, cause)

	var sdkErr *Error
	require.True(t, errors.As(err, &sdkErr))
	require.Equal(t, KindQuery, sdkErr.Kind)
	require.Equal(t, "Add Liquidity Unbalanced", sdkErr.Operation)
}

func TestUnsupportedChainMessage(t *testing.T) {
	err := UnsupportedChain(424242)
	require.ErrorIs(t, err, ErrUnsupportedChain)
	require.NotErrorIs(t, err, ErrInputValidation)
	require.Contains(t, err.Error(), "424242")
}

func TestInputValidationDetail(t *testing.T) {
	err := InputValidation("Create Pool", "Invalid base ECLP parameters", "RotationVectorNotNormalized")
	require.Equal(t,
		"Input Validation: Create Pool: Invalid base ECLP parameters: RotationVectorNotNormalized",
		err.Error())
}
