package natsjs_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	natsctr "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/modules/msgbroker"
	"github.com/romshark/routelint/modules/msgbroker/natsjs"
)

func setupNATS(t *testing.T) *nats.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("requires a NATS container")
	}
	ctx := context.Background()
	ctr, err := natsctr.Run(ctx, "nats:latest")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, ctr.Terminate(ctx)) })

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	conn, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

type metrics struct{}

func (metrics) OnPublish(string)    {}
func (metrics) OnDeliveryDropped() {}

func TestPublishSubscribe(t *testing.T) {
	conn := setupNATS(t)
	ctx := context.Background()

	b, err := natsjs.New(conn, natsjs.Config{})
	require.NoError(t, err)
	require.NoError(t, b.InitStreams([]string{msgbroker.DefaultSubjectPrefix + ".>"}))
	// Streams may already exist.
	require.NoError(t, b.InitStreams([]string{msgbroker.DefaultSubjectPrefix + ".>"}))

	sub, err := b.Subscribe(ctx, metrics{}, msgbroker.DefaultSubjectPrefix+".>")
	require.NoError(t, err)
	defer sub.Close()

	rep := analysis.NewReport("example.com/app")
	rep.Routes = []analysis.RouteReport{{Pos: "a.go:1:1", Pattern: "/", Usage: "Http"}}
	err = msgbroker.PublishReport(ctx, b, metrics{}, msgbroker.DefaultSubjectPrefix, rep)
	require.NoError(t, err)

	select {
	case msg := <-sub.C():
		require.Equal(t,
			msgbroker.ReportSubject(msgbroker.DefaultSubjectPrefix, "example.com/app"),
			msg.Subject)
		got, err := msgbroker.DecodeReport(msg)
		require.NoError(t, err)
		require.Equal(t, rep, got)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for report")
	}
}

func TestSubscriptionClose(t *testing.T) {
	conn := setupNATS(t)

	b, err := natsjs.New(conn, natsjs.Config{ChanBuffer: 1})
	require.NoError(t, err)
	sub, err := b.Subscribe(context.Background(), metrics{}, "x.y")
	require.NoError(t, err)
	sub.Close()
	sub.Close()
	_, ok := <-sub.C()
	require.False(t, ok)
}
