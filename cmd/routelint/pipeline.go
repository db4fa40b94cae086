package main

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/config"
	"github.com/romshark/routelint/modules/msgbroker"
	"github.com/romshark/routelint/modules/msgbroker/inmem"
	"github.com/romshark/routelint/modules/msgbroker/natsjs"
	"github.com/romshark/routelint/modules/reportstore"
	"github.com/romshark/routelint/modules/reportstore/disk"
	"github.com/romshark/routelint/modules/reportstore/natskv"
	"github.com/romshark/routelint/parser"
)

// pipeline analyzes packages, consults the report store and
// publishes reports.
type pipeline struct {
	log     *slog.Logger
	conf    config.Config
	confRaw []byte
	parser  *parser.Parser

	store  reportstore.Store       // Nullable.
	broker msgbroker.MessageBroker // Nullable.
	conn   *nats.Conn              // Nullable.

	metrics msgbroker.Metrics
	subject string
}

// result is the outcome of analyzing one package.
type result struct {
	Package parser.ListedPackage
	Report  *analysis.Report // Nil if the package failed to load.
	Errors  []packageError
	Cached  bool
}

type packageError struct {
	// Pos.Filename is relative to the package directory.
	Pos token.Position
	Err error
}

// Count returns the number of findings at or above threshold.
// Package errors always count.
func (r result) Count(threshold analysis.Severity) int {
	n := len(r.Errors)
	if r.Report != nil {
		n += r.Report.Count(threshold)
	}
	return n
}

func newPipeline(
	log *slog.Logger, conf config.Config, useStore, publish bool,
) (*pipeline, error) {
	raw, err := conf.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	p := &pipeline{
		log:     log,
		conf:    conf,
		confRaw: raw,
		parser:  parser.New(append(conf.ParserOptions(), parser.WithLogger(log))...),
		metrics: msgbroker.LogMetrics{Log: log},
		subject: msgbroker.DefaultSubjectPrefix,
	}
	if useStore {
		if err := p.openStore(); err != nil {
			p.close()
			return nil, err
		}
	}
	if publish {
		if err := p.openBroker(); err != nil {
			p.close()
			return nil, err
		}
	}
	return p, nil
}

func (p *pipeline) close() {
	if b, ok := p.broker.(*inmem.MessageBroker); ok {
		if err := b.Close(); err != nil {
			p.log.Error("closing in-memory broker", slog.Any("err", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.log.Error("draining NATS connection", slog.Any("err", err))
		}
	}
}

// natsConn connects to the configured NATS server once.
func (p *pipeline) natsConn() (*nats.Conn, error) {
	if p.conn != nil {
		return p.conn, nil
	}
	if p.conf.Report.NATS == nil {
		return nil, config.ErrStoreRequiresNATS
	}
	conn, err := nats.Connect(p.conf.Report.NATS.URL, nats.Name("routelint"))
	if err != nil {
		return nil, fmt.Errorf("opening NATS connection: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *pipeline) openStore() error {
	switch p.conf.Store.Kind {
	case config.StoreDisk:
		dir := p.conf.Store.Dir
		if dir == "" {
			var err error
			if dir, err = disk.DefaultDir(); err != nil {
				return fmt.Errorf("resolving report dir: %w", err)
			}
		}
		s, err := disk.Open(dir, p.log)
		if err != nil {
			return err
		}
		p.store = s
		p.log.Debug("using disk report store", slog.String("dir", dir))
	case config.StoreNATS:
		conn, err := p.natsConn()
		if err != nil {
			return err
		}
		s, err := natskv.New(conn, natskv.Config{
			KVConfig: nats.KeyValueConfig{Bucket: p.conf.Store.Bucket},
		})
		if err != nil {
			return err
		}
		p.store = s
		p.log.Debug("using NATS KV report store")
	}
	return nil
}

func (p *pipeline) openBroker() error {
	if p.conf.Report.NATS == nil {
		p.log.Warn("report.nats not configured; using in-memory message broker")
		p.broker = inmem.New(0)
		return nil
	}
	p.subject = p.conf.Report.NATS.Subject
	conn, err := p.natsConn()
	if err != nil {
		return err
	}
	b, err := natsjs.New(conn, natsjs.Config{
		StreamConfig: &nats.StreamConfig{
			Name:    natsjs.DefaultStreamName,
			Storage: nats.FileStorage,
		},
	})
	if err != nil {
		return err
	}
	if err := b.InitStreams([]string{p.subject + ".>"}); err != nil {
		return err
	}
	p.broker = b
	p.log.Info("using NATS message broker", slog.String("subject", p.subject))
	return nil
}

// run analyzes the packages matched by patterns relative to dir
// with at most jobs packages at a time. Results are ordered by
// package path.
func (p *pipeline) run(
	ctx context.Context, dir string, patterns []string, jobs int,
) ([]result, error) {
	pkgs, err := parser.List(ctx, dir, patterns...)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]result, len(pkgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(jobs, len(pkgs)), 1))
	for i, lp := range pkgs {
		g.Go(func() error {
			r, err := p.analyze(gctx, lp)
			if err != nil {
				return fmt.Errorf("%s: %w", lp.Path, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// analyze returns the stored report of an unchanged package or
// parses it.
func (p *pipeline) analyze(ctx context.Context, lp parser.ListedPackage) (result, error) {
	res := result{Package: lp}

	var digest string
	if p.store != nil {
		d, err := reportstore.Digest(lp.GoFiles, p.confRaw, toolVersion())
		if err != nil {
			return res, fmt.Errorf("computing digest: %w", err)
		}
		digest = d
		rep, ok, err := p.store.Get(ctx, digest)
		switch {
		case err != nil:
			p.log.Warn("reading report store",
				slog.String("package", lp.Path), slog.Any("err", err))
		case ok:
			p.log.Debug("unchanged package", slog.String("package", lp.Path))
			res.Report, res.Cached = rep, true
			return res, nil
		}
	}

	proj, errs := p.parser.ParseContext(ctx, lp.Dir, nil)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	for i := range errs.Len() {
		pos, err := errs.Entry(i)
		res.Errors = append(res.Errors, packageError{Pos: pos, Err: err})
	}
	if proj == nil {
		return res, nil
	}
	res.Report = proj.Report()
	res.Report.Digest = digest

	if p.store != nil && len(res.Errors) == 0 {
		if err := p.store.Put(ctx, digest, res.Report); err != nil {
			p.log.Warn("writing report store",
				slog.String("package", lp.Path), slog.Any("err", err))
		}
	}
	return res, nil
}

// publish sends the reports of results to the broker, if any.
func (p *pipeline) publish(ctx context.Context, results []result) error {
	if p.broker == nil {
		return nil
	}
	var errs []error
	for _, r := range results {
		if r.Report == nil {
			continue
		}
		err := msgbroker.PublishReport(ctx, p.broker, p.metrics, p.subject, r.Report)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sourcePath returns the absolute path of a file named in a
// report position of package lp.
func sourcePath(lp parser.ListedPackage, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(lp.Dir, file)
}
