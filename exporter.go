package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rtm0/winds/internal/vm"
	"github.com/rtm0/winds/internal/winds"
)

type exportConfig struct {
	insertURL     string
	metricPrefix  string
	concurrency   int
	recsPerInsert int

	// insertsPerSecond caps the request rate; zero means no cap.
	insertsPerSecond float64
}

type inserter interface {
	Insert(ctx context.Context, points []vm.Point) error
}

// export sends every wind record to Victoria Metrics, labelled with the
// source it was computed from and stamped with ts.
func export(deps *Dependencies, cfg exportConfig, sources []string, results []*winds.Winds, ts time.Time) error {
	vmCli, err := vm.NewClient(deps.Logger, cfg.insertURL, cfg.concurrency, cfg.metricPrefix)
	if err != nil {
		return err
	}
	var points []vm.Point
	for k, w := range results {
		name := sourceName(sources[k])
		for _, r := range w.Records {
			points = append(points, vm.Point{Time: ts, Source: name, Record: r})
		}
	}
	deps.Logger.Info("Exporting wind_info", "url", cfg.insertURL, "records", len(points))
	var limiter *rate.Limiter
	if cfg.insertsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.insertsPerSecond), 1)
	}
	return insertAll(deps, vmCli, limiter, points, cfg.concurrency, cfg.recsPerInsert)
}

// insertAll fans batches of recsPerInsert points out to concurrency
// workers and logs progress as batches land. A nil limiter does not
// throttle.
func insertAll(deps *Dependencies, ins inserter, limiter *rate.Limiter, points []vm.Point, concurrency, recsPerInsert int) error {
	batchCh := make(chan []vm.Point)
	progressCh := make(chan int)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for range max(concurrency, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				err := deps.Ctx.Err()
				if limiter != nil && err == nil {
					err = limiter.Wait(deps.Ctx)
				}
				if err == nil {
					err = ins.Insert(deps.Ctx, batch)
				}
				if err != nil {
					mu.Lock()
					failed = append(failed, err)
					mu.Unlock()
					continue
				}
				progressCh <- len(batch)
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		var inserted, total float64
		total = float64(len(points))
		start := time.Now()
		for n := range progressCh {
			inserted += float64(n)
			percent := fmt.Sprintf("%.2f%%", 100*inserted/total)
			duration := time.Since(start).Round(1 * time.Second)
			deps.Logger.Info("progress", "inserted", percent, "in", duration)
		}
	}()

send:
	for begin := 0; begin < len(points); begin += recsPerInsert {
		limit := min(begin+recsPerInsert, len(points))
		select {
		case batchCh <- points[begin:limit]:
		case <-deps.Ctx.Done():
			mu.Lock()
			failed = append(failed, deps.Ctx.Err())
			mu.Unlock()
			break send
		}
	}
	close(batchCh)
	wg.Wait()
	close(progressCh)
	<-done
	return errors.Join(failed...)
}
