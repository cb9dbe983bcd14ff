package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUDPTransportUnicastRoundTrip(t *testing.T) {
	a := NewUDPTransport(UDPConfig{Port: 0})
	require.NoError(t, a.Start())
	defer a.Stop()

	b := NewUDPTransport(UDPConfig{Port: 0})
	require.NoError(t, b.Start())
	defer b.Stop()

	bAddr := b.conn.LocalAddr().String()

	require.NoError(t, a.Send([]byte("ping"), bAddr))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frame, ok := b.Recv(); ok {
			require.Equal(t, "ping", string(frame.Data))
			require.NotEmpty(t, frame.SourceHint)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for unicast frame")
}

func TestUDPTransportRecvEmptyWhenIdle(t *testing.T) {
	a := NewUDPTransport(UDPConfig{Port: 0})
	require.NoError(t, a.Start())
	defer a.Stop()

	_, ok := a.Recv()
	require.False(t, ok)
}

func TestUDPTransportSendBeforeStart(t *testing.T) {
	a := NewUDPTransport(UDPConfig{Port: 0})
	err := a.Send([]byte("x"), "")
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestUDPTransportStopIsIdempotent(t *testing.T) {
	a := NewUDPTransport(UDPConfig{Port: 0})
	require.NoError(t, a.Start())
	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop())
}

func TestDecodeLineMalformedYieldsNoFrame(t *testing.T) {
	data, err := decodeLine("not-valid-base64!!!\n")
	require.Error(t, err)
	require.Nil(t, data)

	data, err = decodeLine("\n")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestDecodeLineRoundTrip(t *testing.T) {
	data, err := decodeLine("aGVsbG8=\n")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}
