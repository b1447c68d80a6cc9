package check

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/stretchr/testify/require"
)

func TestPanics(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() { PanicIfNot(true) })
	require.Panics(t, func() { PanicIfNot(false) })

	require.NotPanics(t, func() { PanicIfErr(nil) })
	require.Panics(t, func() { PanicIfErr(errors.New("boom")) })

	require.PanicsWithValue(t, "bad height 3", func() { PanicIfNotf(false, "bad height %d", 3) })

	require.NotPanics(t, func() { PanicIfNotCancelledErr(context.Canceled) })
	require.NotPanics(t, func() { PanicIfNotCancelledErr(fmt.Errorf("wrapped: %w", context.Canceled)) })
	require.Panics(t, func() { PanicIfNotCancelledErr(context.DeadlineExceeded) })

	require.Panics(t, func() { LogAndPanicIfErrf(errors.New("boom"), logging.Nop(), "failed at %d", 1) })
}
