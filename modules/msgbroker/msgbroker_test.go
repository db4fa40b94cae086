package msgbroker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/modules/msgbroker"
	"github.com/romshark/routelint/modules/msgbroker/inmem"
)

func TestReportSubject(t *testing.T) {
	tests := map[string]struct {
		prefix, pkg string
		expect      string
	}{
		"simple":   {"reports", "app", "reports.app"},
		"dotted":   {"reports", "github.com/x/app", "reports.github_com/x/app"},
		"wildcard": {"r", "a*b>c", "r.a_b_c"},
		"empty":    {"r", "", "r._"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.expect, msgbroker.ReportSubject(tt.prefix, tt.pkg))
		})
	}
}

type countingMetrics struct{ published, dropped int }

func (m *countingMetrics) OnPublish(string)    { m.published++ }
func (m *countingMetrics) OnDeliveryDropped() { m.dropped++ }

func TestPublishReport(t *testing.T) {
	ctx := context.Background()
	b := inmem.New(0)
	m := new(countingMetrics)

	subject := msgbroker.ReportSubject(msgbroker.DefaultSubjectPrefix, "example.com/app")
	sub, err := b.Subscribe(ctx, m, subject)
	require.NoError(t, err)
	defer sub.Close()

	rep := analysis.NewReport("example.com/app")
	rep.Routes = append(rep.Routes, analysis.RouteReport{
		Pos:     "app.go:3:14",
		Pattern: "/users/{id}",
		Usage:   "Http",
	})
	err = msgbroker.PublishReport(ctx, b, m, msgbroker.DefaultSubjectPrefix, rep)
	require.NoError(t, err)
	require.Equal(t, 1, m.published)

	msg := <-sub.C()
	require.Equal(t, subject, msg.Subject)
	got, err := msgbroker.DecodeReport(msg)
	require.NoError(t, err)
	require.Equal(t, rep, got)
}

func TestPublishReportErrors(t *testing.T) {
	ctx := context.Background()
	b := inmem.New(0)
	m := msgbroker.LogMetrics{}

	err := msgbroker.PublishReport(ctx, b, m, "", analysis.NewReport("x"))
	require.ErrorIs(t, err, msgbroker.ErrEmptySubjectPrefix)

	err = msgbroker.PublishReport(ctx, b, m, "r", nil)
	require.ErrorIs(t, err, msgbroker.ErrNilReport)
}
