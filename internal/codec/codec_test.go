package codec_test

import (
	"testing"

	"github.com/auroradata-ai/federated-dfg/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestBuildReservesSentinels(t *testing.T) {
	table := codec.Build(map[string]struct{}{"a": {}}, map[string]struct{}{"b": {}})

	code, err := table.Code(codec.StartName)
	require.NoError(t, err)
	require.Equal(t, codec.StartCode, code)

	code, err = table.Code(codec.EndName)
	require.NoError(t, err)
	require.Equal(t, codec.EndCode, code)
}

func TestBuildIsDeterministicUnderSetIterationOrder(t *testing.T) {
	activitiesA := map[string]struct{}{"zebra": {}, "apple": {}, "mango": {}}
	activitiesB := map[string]struct{}{"banana": {}}

	var codes []uint16
	for i := 0; i < 20; i++ {
		table := codec.Build(activitiesA, activitiesB)
		code, err := table.Code("apple")
		require.NoError(t, err)
		codes = append(codes, code)
	}
	for _, c := range codes {
		require.Equal(t, codes[0], c, "code assignment must not depend on map iteration order")
	}
}

func TestCodeUnknownActivity(t *testing.T) {
	table := codec.Build(map[string]struct{}{"a": {}}, nil)
	_, err := table.Code("never-seen")
	require.Error(t, err)
}

func TestCodesCoverFullRange(t *testing.T) {
	table := codec.Build(map[string]struct{}{"a": {}, "b": {}}, map[string]struct{}{"c": {}})
	codes := table.Codes()
	require.Equal(t, table.Size(), len(codes))
	for i, c := range codes {
		require.Equal(t, uint16(i), c)
	}
}
