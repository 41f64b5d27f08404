package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestReadWriter(t *testing.T) {
	server := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		rw := New(conn)
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return
			}
			if err := rw.WritePacket(append(pkt, 0xff)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	rw, err := Dial("ws"+strings.TrimPrefix(server.URL, "http"), server.URL)
	require.NoError(t, err)
	defer rw.Close()

	require.NoError(t, rw.WritePacket([]byte{0x06, 'O', 'K'}))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x06, 'O', 'K', 0xff}, pkt)

	require.NoError(t, rw.WritePacket(make([]byte, 32)))
	_, err = rw.ReadPacket()
	require.Error(t, err)

	require.NoError(t, rw.Close())
	require.NoError(t, rw.Close())
}
