package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/internal/pattern"
	"github.com/pkarlsson/wordrel/internal/pipeline"
	"github.com/pkarlsson/wordrel/internal/sqlgen"
	"github.com/pkarlsson/wordrel/pkg/config"
	"github.com/pkarlsson/wordrel/pkg/health"
	"github.com/pkarlsson/wordrel/pkg/kafka"
	"github.com/pkarlsson/wordrel/pkg/logger"
	"github.com/pkarlsson/wordrel/pkg/metrics"
	"github.com/pkarlsson/wordrel/pkg/postgres"
	"github.com/pkarlsson/wordrel/pkg/redis"
)

func main() {
	app := &cli.App{
		Name:  "wordrel",
		Usage: "build the word-relation index from dependency-parsed corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to YAML config file"},
		},
		Commands: []*cli.Command{
			extractCommand(),
			indexCommand(),
			runCommand(),
			consumeCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wordrel: %v\n", err)
		os.Exit(1)
	}
}

// env bundles everything a command needs after common setup.
type env struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	checker *health.Checker
	cleanup []func()
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	e := &env{cfg: cfg, checker: health.NewChecker()}
	if cfg.Metrics.Enabled {
		e.metrics = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/healthz": e.checker.Handler(),
		})
		e.cleanup = append(e.cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		})
	}
	return e, nil
}

func (e *env) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func unitID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileUnit(path string) pipeline.Unit {
	return pipeline.Unit{
		ID: unitID(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// withWriter runs body with the SQL writer for the chosen delivery mode. The
// default is a script on stdout or a file; with --execute the whole run,
// schema through final swap, executes inside one Postgres transaction and
// commits only if body succeeds.
func withWriter(ctx context.Context, c *cli.Context, e *env, body func(*sqlgen.Writer) error) error {
	if c.Bool("execute") {
		client, err := postgres.New(e.cfg.Postgres)
		if err != nil {
			return err
		}
		defer client.Close()
		e.checker.Register("postgres", health.CheckFunc(func(ctx context.Context) error {
			return client.DB.PingContext(ctx)
		}))
		return client.InTx(ctx, func(tx *sql.Tx) error {
			return body(sqlgen.NewWriter(e.cfg.Writer, sqlgen.NewTxSink(tx), e.metrics))
		})
	}

	out := os.Stdout
	if path := c.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output script: %w", err)
		}
		out = f
	}
	sink := sqlgen.NewScriptSink(out)
	err := body(sqlgen.NewWriter(e.cfg.Writer, sink, e.metrics))
	if flushErr := sink.Flush(); err == nil {
		err = flushErr
	}
	if out != os.Stdout {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// buildNotifiers connects the optional post-swap notifiers when --notify is
// set.
func buildNotifiers(c *cli.Context, e *env, p *pipeline.Pipeline) error {
	if !c.Bool("notify") {
		return nil
	}
	cache, err := redis.NewClient(e.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting redis: %w", err)
	}
	e.checker.Register("redis", health.CheckFunc(cache.Ping))
	e.cleanup = append(e.cleanup, func() { _ = cache.Close() })

	producer := kafka.NewProducer(e.cfg.Kafka, e.cfg.Kafka.Topics.IndexComplete)
	e.checker.Register("kafka", health.CheckFunc(producer.Ping))
	e.cleanup = append(e.cleanup, func() { _ = producer.Close() })

	p.WithNotifiers(cache, producer)
	return nil
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract relation tuples from annotation files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out-dir", Value: ".", Usage: "directory for .rel interchange files"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no annotation files given")
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()
			ctx, stop := signalContext()
			defer stop()

			matcher, err := pattern.NewMatcher(pattern.Default(), pattern.DefaultNullRels())
			if err != nil {
				return err
			}
			p := pipeline.New(e.cfg, matcher, nil, e.metrics)

			for _, path := range c.Args().Slice() {
				unit := fileUnit(path)
				outPath := filepath.Join(c.String("out-dir"), unit.ID+".rel")
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				tw := annotation.NewTupleWriter(f)
				if err := p.ExtractUnit(ctx, unit, tw); err != nil {
					f.Close()
					return err
				}
				if err := tw.Flush(); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "aggregate .rel interchange files into the index tables",
		ArgsUsage: "FILE...",
		Flags:     deliveryFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no interchange files given")
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()
			ctx, stop := signalContext()
			defer stop()

			var p *pipeline.Pipeline
			err = withWriter(ctx, c, e, func(writer *sqlgen.Writer) error {
				p = pipeline.New(e.cfg, nil, writer, e.metrics)
				if err := buildNotifiers(c, e, p); err != nil {
					return err
				}
				if err := writer.Begin(ctx); err != nil {
					return err
				}
				for _, path := range c.Args().Slice() {
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("opening %s: %w", path, err)
					}
					err = p.IndexUnit(ctx, unitID(path), annotation.NewTupleReader(f))
					f.Close()
					if err != nil {
						return err
					}
				}
				return p.Finish(ctx)
			})
			if err != nil {
				return err
			}
			p.Notify(ctx)
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "extract and index annotation files in one pass",
		ArgsUsage: "FILE...",
		Flags:     deliveryFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no annotation files given")
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()
			ctx, stop := signalContext()
			defer stop()

			matcher, err := pattern.NewMatcher(pattern.Default(), pattern.DefaultNullRels())
			if err != nil {
				return err
			}
			var p *pipeline.Pipeline
			err = withWriter(ctx, c, e, func(writer *sqlgen.Writer) error {
				p = pipeline.New(e.cfg, matcher, writer, e.metrics)
				if err := buildNotifiers(c, e, p); err != nil {
					return err
				}
				if err := writer.Begin(ctx); err != nil {
					return err
				}
				for _, path := range c.Args().Slice() {
					if err := p.RunUnit(ctx, fileUnit(path)); err != nil {
						return err
					}
				}
				return p.Finish(ctx)
			})
			if err != nil {
				return err
			}
			p.Notify(ctx)
			return nil
		},
	}
}

func consumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "consume annotation units from Kafka until interrupted, then swap the index",
		Flags: deliveryFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()
			ctx, stop := signalContext()
			defer stop()

			matcher, err := pattern.NewMatcher(pattern.Default(), pattern.DefaultNullRels())
			if err != nil {
				return err
			}
			// The swap must still run after an interrupt stops consumption,
			// so delivery gets its own context.
			flushCtx := context.Background()
			var p *pipeline.Pipeline
			err = withWriter(flushCtx, c, e, func(writer *sqlgen.Writer) error {
				p = pipeline.New(e.cfg, matcher, writer, e.metrics)
				if err := buildNotifiers(c, e, p); err != nil {
					return err
				}
				if err := writer.Begin(flushCtx); err != nil {
					return err
				}
				consumer := kafka.NewConsumer(e.cfg.Kafka, e.cfg.Kafka.Topics.AnnotationUnits,
					pipeline.HandleUnitMessage(p))
				e.checker.Register("kafka", health.CheckFunc(consumer.Ping))

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return consumer.Start(gctx)
				})
				if err := g.Wait(); err != nil {
					return err
				}
				return p.Finish(flushCtx)
			})
			if err != nil {
				return err
			}
			p.Notify(flushCtx)
			return nil
		},
	}
}

func deliveryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Value: "-", Usage: "output script path, - for stdout"},
		&cli.BoolFlag{Name: "execute", Usage: "execute statements against Postgres instead of writing a script"},
		&cli.BoolFlag{Name: "notify", Usage: "invalidate caches and publish a completion event after the swap"},
	}
}
