package exit

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestWAL(t *testing.T) *WAL {
	t.Helper()
	w, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestOutboxLifecycle(t *testing.T) {
	w := openTestWAL(t)

	require.NoError(t, w.PutNew(7, []byte("fill-report")))
	rec, err := w.Get(7)
	require.NoError(t, err)
	assert.Equal(t, StateNew, rec.State)
	assert.Equal(t, []byte("fill-report"), rec.Payload)
	assert.Zero(t, rec.Retries)

	require.NoError(t, w.MarkSent(7))
	rec, _ = w.Get(7)
	assert.Equal(t, StateSent, rec.State)
	assert.NotZero(t, rec.LastAttempt)

	require.NoError(t, w.MarkAcked(7))
	rec, _ = w.Get(7)
	assert.Equal(t, StateAcked, rec.State)

	require.NoError(t, w.Delete(7))
	_, err = w.Get(7)
	assert.ErrorIs(t, err, pebble.ErrNotFound)
}

func TestFailedIncrementsRetries(t *testing.T) {
	w := openTestWAL(t)
	require.NoError(t, w.PutNew(1, []byte("x")))

	require.NoError(t, w.MarkFailed(1))
	require.NoError(t, w.MarkFailed(1))
	rec, err := w.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, rec.State)
	assert.Equal(t, uint32(2), rec.Retries)
}

func TestScanPendingSkipsAcked(t *testing.T) {
	w := openTestWAL(t)
	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, w.PutNew(seq, []byte{byte(seq)}))
	}
	require.NoError(t, w.MarkAcked(2))
	require.NoError(t, w.MarkSent(3))
	require.NoError(t, w.MarkFailed(4))

	var seqs []uint64
	require.NoError(t, w.ScanPending(func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	}))
	// A SENT record with no ack is a crash in flight; it must replay.
	assert.Equal(t, []uint64{1, 3, 4}, seqs)
}

func TestScanByState(t *testing.T) {
	w := openTestWAL(t)
	require.NoError(t, w.PutNew(10, nil))
	require.NoError(t, w.PutNew(11, nil))
	require.NoError(t, w.MarkFailed(11))

	var seqs []uint64
	require.NoError(t, w.ScanByState(StateFailed, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{11}, seqs)
}

func TestScanOrderIsNumeric(t *testing.T) {
	w := openTestWAL(t)
	// Out-of-order inserts across digit-count boundaries.
	for _, seq := range []uint64{100, 2, 30, 1} {
		require.NoError(t, w.PutNew(seq, nil))
	}
	var seqs []uint64
	require.NoError(t, w.ScanPending(func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 30, 100}, seqs)
}
