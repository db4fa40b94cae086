package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/config"
	"github.com/romshark/routelint/modules/msgbroker"
)

func fixtureDir(t *testing.T, name string) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "parser", "testdata", name))
	require.NoError(t, err)
	return dir
}

func testPipeline(t *testing.T, conf config.Config, useStore, publish bool) *pipeline {
	t.Helper()
	t.Setenv(config.EnvNATSURL, "")
	p, err := newPipeline(slog.New(slog.DiscardHandler), conf, useStore, publish)
	require.NoError(t, err)
	t.Cleanup(p.close)
	return p
}

func TestPipelineStore(t *testing.T) {
	ctx := context.Background()
	conf := config.Default()
	conf.Store = config.Store{Kind: config.StoreDisk, Dir: t.TempDir()}
	p := testPipeline(t, conf, true, false)
	dir := fixtureDir(t, "servemux")

	first, err := p.run(ctx, dir, []string{"."}, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.False(t, first[0].Cached)
	require.Empty(t, first[0].Errors)
	require.Equal(t, "routelinttest/fixture/servemux", first[0].Report.Package)
	require.NotEmpty(t, first[0].Report.Digest)
	require.Equal(t, 0, first[0].Count(analysis.SevError))
	require.Equal(t, 1, first[0].Count(analysis.SevWarning))

	second, err := p.run(ctx, dir, []string{"."}, 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.True(t, second[0].Cached)
	require.Equal(t, first[0].Report, second[0].Report)
}

func TestPipelineStoreSkipsFailedPackages(t *testing.T) {
	ctx := context.Background()
	conf := config.Default()
	conf.Store = config.Store{Kind: config.StoreDisk, Dir: t.TempDir()}
	p := testPipeline(t, conf, true, false)
	dir := fixtureDir(t, "typeerror")

	for range 2 {
		res, err := p.run(ctx, dir, []string{"."}, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		require.False(t, res[0].Cached)
		require.NotEmpty(t, res[0].Errors)
		require.Positive(t, res[0].Count(analysis.SevError))
	}
}

func TestPipelineNoStore(t *testing.T) {
	p := testPipeline(t, config.Default(), false, false)
	require.Nil(t, p.store)
	require.Nil(t, p.broker)

	res, err := p.run(context.Background(), fixtureDir(t, "servemux"), []string{"."}, 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Empty(t, res[0].Report.Digest)
	require.NoError(t, p.publish(context.Background(), res))
}

func TestPipelinePublishInMemory(t *testing.T) {
	ctx := context.Background()
	p := testPipeline(t, config.Default(), false, true)
	require.NotNil(t, p.broker)
	require.Equal(t, msgbroker.DefaultSubjectPrefix, p.subject)

	sub, err := p.broker.Subscribe(ctx, p.metrics, p.subject+".>")
	require.NoError(t, err)
	defer sub.Close()

	res, err := p.run(ctx, fixtureDir(t, "servemux"), []string{"."}, 0)
	require.NoError(t, err)
	require.NoError(t, p.publish(ctx, res))

	m := <-sub.C()
	require.Equal(t,
		msgbroker.ReportSubject(p.subject, "routelinttest/fixture/servemux"),
		m.Subject)
	rep, err := msgbroker.DecodeReport(m)
	require.NoError(t, err)
	require.Equal(t, res[0].Report, rep)
}
