package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComponentsFilter(t *testing.T) {
	SetupGlobalLogger("debug")

	consensusBuf := new(bytes.Buffer)
	networkBuf := new(bytes.Buffer)
	dbBuf := new(bytes.Buffer)

	consensus := NewLoggerWithWriter("consensus", consensusBuf)
	network := NewLoggerWithWriter("network", networkBuf)
	db := NewLoggerWithWriter("db", dbBuf)

	msgIndex := 0
	emitLogs := func() {
		consensusBuf.Reset()
		networkBuf.Reset()
		dbBuf.Reset()
		msgIndex++
		consensus.Warn().Msgf("consensus message %d", msgIndex)
		network.Warn().Msgf("network message %d", msgIndex)
		db.Warn().Msgf("db message %d", msgIndex)
	}

	ApplyComponentsFilter("-all")
	emitLogs()
	require.Equal(t, 0, consensusBuf.Len())
	require.Equal(t, 0, networkBuf.Len())
	require.Equal(t, 0, dbBuf.Len())

	ApplyComponentsFilter("all:-consensus")
	emitLogs()
	require.Equal(t, 0, consensusBuf.Len())
	require.Contains(t, networkBuf.String(), fmt.Sprintf("network message %d", msgIndex))
	require.Contains(t, dbBuf.String(), fmt.Sprintf("db message %d", msgIndex))

	ApplyComponentsFilter("consensus:-all")
	emitLogs()
	require.Equal(t, 0, consensusBuf.Len())
	require.Equal(t, 0, networkBuf.Len())
	require.Equal(t, 0, dbBuf.Len())

	ApplyComponentsFilter("-all:-db:all")
	emitLogs()
	require.Contains(t, consensusBuf.String(), fmt.Sprintf("consensus message %d", msgIndex))
	require.Contains(t, networkBuf.String(), fmt.Sprintf("network message %d", msgIndex))
	require.Contains(t, dbBuf.String(), fmt.Sprintf("db message %d", msgIndex))

	logBuf := new(bytes.Buffer)
	ApplyComponentsFilter("-txpool")
	txpool := NewLoggerWithWriter("txpool", logBuf)
	txpool.Warn().Msg("dropped")
	require.Equal(t, 0, logBuf.Len())
}

func TestLoggerFields(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewLoggerWithWriter("fields", buf)
	logger.Info().Uint64(FieldHeight, 7).Uint32(FieldRound, 2).Msg("round started")

	require.Contains(t, buf.String(), `"height":7`)
	require.Contains(t, buf.String(), `"round":2`)
	require.Contains(t, buf.String(), `"component":"fields"`)
}
