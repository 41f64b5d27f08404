// Package websocket carries radio frames in websocket binary messages.
package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/radio.go/pkg/link"
)

// ReadWriter implements radio.Transport.
type ReadWriter struct {
	Conn *websocket.Conn

	done chan struct{}
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{Conn: conn, done: make(chan struct{})}
}

// Dial connects a websocket server.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	glog.V(2).Infof("websocket connected %s", url)
	return New(conn), nil
}

// Accept listens on addr and waits for one peer connecting at path.
func Accept(ctx context.Context, addr, path string) (*ReadWriter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	connCh := make(chan *ReadWriter, 1)
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		rw := New(conn)
		select {
		case connCh <- rw:
		default:
			glog.Warningf("websocket peer %s refused, already connected", conn.Request().RemoteAddr)
			return
		}
		// the connection is closed once the handler returns
		<-rw.done
	}))
	server := &http.Server{Handler: mux}
	go server.Serve(ln)
	glog.Infof("websocket waiting for peer on %s%s", ln.Addr(), path)
	select {
	case rw := <-connCh:
		go func() {
			<-rw.done
			server.Close()
		}()
		return rw, nil
	case <-ctx.Done():
		server.Close()
		return nil, ctx.Err()
	}
}

// ReadPacket implements radio.PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	if err = websocket.Message.Receive(p.Conn, &pkt); err == nil && len(pkt) > link.MaxFrameSize {
		err = link.ErrFrameTooLarge
	}
	return
}

// WritePacket implements radio.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.Conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	select {
	case <-p.done:
		return nil
	default:
		close(p.done)
	}
	return p.Conn.Close()
}
