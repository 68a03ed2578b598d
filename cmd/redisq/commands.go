package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	redisq "github.com/Renuu007/RedisQ"
)

// buildContainer assembles the CLI dependencies. Every command resolves
// what it needs from here instead of constructing it inline.
func buildContainer(cfgFile string) (*dig.Container, error) {
	c := dig.New()
	constructors := []interface{}{
		func() (*config, error) {
			return loadConfig(cfgFile)
		},
		func() log.Logger {
			logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
			return level.NewFilter(logger, level.AllowInfo())
		},
		func(cfg *config, logger log.Logger) (*redisq.RedisBackend, error) {
			return redisq.NewRedisBackend(cfg.RedisURL, logger)
		},
	}
	for _, ctor := range constructors {
		if err := c.Provide(ctor); err != nil {
			return nil, errors.Wrap(err, "provide dependency")
		}
	}
	return c, nil
}

func invoke(cfgFile string, fn interface{}) error {
	c, err := buildContainer(cfgFile)
	if err != nil {
		return err
	}
	return c.Invoke(fn)
}

func printLengths(ctx context.Context, backend *redisq.RedisBackend, queues []string) error {
	for _, queue := range queues {
		n, err := backend.Len(ctx, queue)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d\n", queue, n)
	}
	return nil
}

func infoCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info [queue...]",
		Short: "Print the pending task count of each queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(*cfgFile, func(cfg *config, backend *redisq.RedisBackend) error {
				defer backend.Close()
				queues := args
				if len(queues) == 0 {
					queues = cfg.Queues
				}
				return printLengths(cmd.Context(), backend, queues)
			})
		},
	}
}

func flushCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "flush <queue> [queue...]",
		Short: "Drop all pending tasks of the given queues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(*cfgFile, func(backend *redisq.RedisBackend, logger log.Logger) error {
				defer backend.Close()
				for _, queue := range args {
					if err := backend.Flush(cmd.Context(), queue); err != nil {
						return err
					}
					_ = level.Info(logger).Log("msg", "queue flushed", "queue", queue)
				}
				return nil
			})
		},
	}
}

func enqueueCommand(cfgFile *string) *cobra.Command {
	var (
		queue  string
		kwargs string
	)
	cmd := &cobra.Command{
		Use:   "enqueue <fn> [json-arg...]",
		Short: "Append a raw task payload to a queue",
		Long: "Enqueue builds a task payload for the given function identifier and\n" +
			"appends it to the queue, bypassing the in-process producer. Each\n" +
			"positional argument is parsed as a JSON value.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := redisq.Task{Fn: args[0]}
			for _, raw := range args[1:] {
				var v interface{}
				if err := json.Unmarshal([]byte(raw), &v); err != nil {
					return errors.Wrapf(err, "argument %q is not valid JSON", raw)
				}
				task.Args = append(task.Args, v)
			}
			if kwargs != "" {
				if err := json.Unmarshal([]byte(kwargs), &task.Kwargs); err != nil {
					return errors.Wrap(err, "kwargs is not a valid JSON object")
				}
			}
			payload, err := json.Marshal(task)
			if err != nil {
				return err
			}
			return invoke(*cfgFile, func(backend *redisq.RedisBackend, logger log.Logger) error {
				defer backend.Close()
				if err := backend.Push(cmd.Context(), queue, payload); err != nil {
					return err
				}
				_ = level.Info(logger).Log("msg", "task enqueued", "fn", task.Fn, "queue", queue)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&queue, "queue", "q", "default", "queue to append to")
	cmd.Flags().StringVar(&kwargs, "kwargs", "", "named arguments as a JSON object")
	return cmd
}

func watchCommand(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [queue...]",
		Short: "Periodically print queue lengths until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(*cfgFile, func(cfg *config, backend *redisq.RedisBackend) error {
				defer backend.Close()
				queues := args
				if len(queues) == 0 {
					queues = cfg.Queues
				}
				interval := time.Duration(cfg.WatchIntervalSecond) * time.Second

				var g run.Group
				ctx, cancel := context.WithCancel(cmd.Context())
				g.Add(func() error {
					ticker := time.NewTicker(interval)
					defer ticker.Stop()
					for {
						if err := printLengths(ctx, backend, queues); err != nil {
							return err
						}
						select {
						case <-ticker.C:
						case <-ctx.Done():
							return ctx.Err()
						}
					}
				}, func(error) {
					cancel()
				})
				g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

				err := g.Run()
				if _, ok := err.(run.SignalError); ok || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
