package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMaxConcurrentIdentities(t *testing.T) {
	require.Equal(t, 3, MaxConcurrentIdentities(Basic))
	require.Equal(t, Unlimited, MaxConcurrentIdentities(Plus))
	require.Equal(t, Unlimited, MaxConcurrentIdentities(Pro))
}

func TestMayCreateIdentity(t *testing.T) {
	ok, reason := MayCreateIdentity(Basic, 3)
	require.False(t, ok)
	require.Equal(t, ReasonQuotaExceeded, reason)

	ok, _ = MayCreateIdentity(Basic, 2)
	require.True(t, ok)

	ok, _ = MayCreateIdentity(Plus, 1000)
	require.True(t, ok)
}

func TestDormantTTL(t *testing.T) {
	ttl, ok := DormantTTL(Basic)
	require.True(t, ok)
	require.Equal(t, 7*24*time.Hour, ttl)

	_, ok = DormantTTL(Plus)
	require.False(t, ok)

	_, ok = DormantTTL(Pro)
	require.False(t, ok)
}

func TestTierGatedFeatures(t *testing.T) {
	require.False(t, MayUseCustomColor(Basic))
	require.False(t, MayUseCustomColor(Plus))
	require.True(t, MayUseCustomColor(Pro))

	require.False(t, MayAutoRestoreOnRestart(Basic))
	require.False(t, MayAutoRestoreOnRestart(Plus))
	require.True(t, MayAutoRestoreOnRestart(Pro))

	require.False(t, MayExportAll(Basic))
	require.False(t, MayExportAll(Plus))
	require.True(t, MayExportAll(Pro))
}
