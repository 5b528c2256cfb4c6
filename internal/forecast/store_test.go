package forecast

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_SnapshotAndReload(t *testing.T) {
	monthly, daily := writeFixtures(t)

	store, err := NewStore(monthly, daily, nil)
	require.NoError(t, err)
	require.Len(t, store.Snapshot().Monthly, 9)

	// Rewrite the monthly file with one extra row and reload.
	extra := monthlyCSV + "AAA Batteries (4-pack),Austin (TX),2020-03,400\n"
	require.NoError(t, os.WriteFile(monthly, []byte(extra), 0644))
	require.NoError(t, store.Reload())
	require.Len(t, store.Snapshot().Monthly, 10)
}

func TestStore_ReloadKeepsLastGoodSnapshot(t *testing.T) {
	monthly, daily := writeFixtures(t)

	store, err := NewStore(monthly, daily, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(monthly, []byte("garbage"), 0644))
	require.Error(t, store.Reload())
	require.Len(t, store.Snapshot().Monthly, 9)
}

func TestStore_WatchReloadsOnWrite(t *testing.T) {
	monthly, daily := writeFixtures(t)

	store, err := NewStore(monthly, daily, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))
	defer store.Close()

	extra := monthlyCSV + "AAA Batteries (4-pack),Austin (TX),2020-03,400\n"
	require.NoError(t, os.WriteFile(monthly, []byte(extra), 0644))

	require.Eventually(t, func() bool {
		return len(store.Snapshot().Monthly) == 10
	}, 5*time.Second, 50*time.Millisecond)
}
