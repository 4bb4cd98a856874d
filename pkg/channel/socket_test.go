package channel

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typescope/pkg/wire"
)

var testLogger = zerolog.Nop()

func listenAsync(t *testing.T, ch Channel) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- ch.Listen(context.Background())
	}()
	return errCh
}

func TestSocketChannel_Duplex(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ts.sock")
	ch, err := NewSocketOpener("unix", sock, 20*time.Millisecond, testLogger).Open(ModeDuplex)
	require.NoError(t, err)
	defer ch.Close()

	errCh := listenAsync(t, ch)
	peer, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer peer.Close()
	require.NoError(t, <-errCh)
	assert.True(t, ch.IsConnected())

	require.NoError(t, ch.WriteFrame([]byte("snapshot")))
	got, err := wire.ReadFrame(peer, 0)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(got))

	buf := make([]byte, 64)
	n, err := ch.ReadAvailable(buf)
	require.NoError(t, err, "an idle poll is not an error")
	assert.Zero(t, n)

	_, err = peer.Write([]byte("REFRESH\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err = ch.ReadAvailable(buf)
		return err == nil && n > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "REFRESH\n", string(buf[:n]))

	peer.Close()
	require.Eventually(t, func() bool {
		_, err := ch.ReadAvailable(buf)
		return err != nil
	}, time.Second, 10*time.Millisecond)
	assert.False(t, ch.IsConnected())
}

func TestSocketChannel_SendOnlyRead(t *testing.T) {
	ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeSendOnly)
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.ReadAvailable(make([]byte, 8))
	assert.True(t, IsNotSupported(err))
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, ModeSendOnly, capErr.Mode)
}

func TestSocketChannel_CloseUnblocksListen(t *testing.T) {
	ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeDuplex)
	require.NoError(t, err)

	errCh := listenAsync(t, ch)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ch.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}
}

func TestSocketChannel_CloseRacingAccept(t *testing.T) {
	for i := 0; i < 50; i++ {
		ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeDuplex)
		require.NoError(t, err)
		addr := ch.(Addresser).Addr().String()

		errCh := listenAsync(t, ch)
		closed := make(chan struct{})
		go func() {
			ch.Close()
			close(closed)
		}()

		peer, dialErr := net.Dial("tcp", addr)
		<-closed
		listenErr := <-errCh
		assert.False(t, ch.IsConnected(), "iteration %d: listen returned %v", i, listenErr)
		if dialErr != nil {
			continue
		}

		// the accepted connection never outlives the channel
		require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
		_, err = peer.Read(make([]byte, 1))
		var netErr net.Error
		if errors.As(err, &netErr) {
			assert.False(t, netErr.Timeout(), "iteration %d: connection left open", i)
		}
		assert.Error(t, err)
		peer.Close()
	}
}

func TestSocketChannel_ListenCancelled(t *testing.T) {
	ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeDuplex)
	require.NoError(t, err)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Listen(ctx), context.DeadlineExceeded)
}

func TestSocketChannel_WriteAfterPeerGone(t *testing.T) {
	ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeSendOnly)
	require.NoError(t, err)
	defer ch.Close()

	addr := ch.(Addresser).Addr().String()
	errCh := listenAsync(t, ch)
	peer, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	peer.Close()

	payload := make([]byte, 64*1024)
	require.Eventually(t, func() bool {
		err := ch.WriteFrame(payload)
		var chErr *Error
		return errors.As(err, &chErr)
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, ch.IsConnected())
}

func TestSocketChannel_WriteBeforeListen(t *testing.T) {
	ch, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeDuplex)
	require.NoError(t, err)
	defer ch.Close()

	assert.ErrorIs(t, ch.WriteFrame([]byte("x")), ErrNotConnected)
}

func TestSocketOpener_AddressInUse(t *testing.T) {
	first, err := NewSocketOpener("tcp", "127.0.0.1:0", 0, testLogger).Open(ModeDuplex)
	require.NoError(t, err)
	defer first.Close()

	_, err = NewSocketOpener("tcp", first.(Addresser).Addr().String(), 0, testLogger).Open(ModeDuplex)
	var chErr *Error
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "open", chErr.Op)
	assert.False(t, IsNotSupported(err))
}
