package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/port"
	"github.com/vertextoedge/fetchkit/internal/service/dispatcher"
	"github.com/vertextoedge/fetchkit/internal/service/downloader"
	"github.com/vertextoedge/fetchkit/internal/service/resolver"
)

var errStopped = errors.New("download stopped")

type getResult struct {
	status int
	ok     bool
	body   []byte
	text   string
}

var getDescriptor = dispatcher.Descriptor[getResult]{
	Rules: []resolver.Rule{
		resolver.On(domain.StatusSuccess, resolver.Text(resolver.EncodingAuto)),
		resolver.On(domain.StatusAny, resolver.Raw()),
	},
	Result: func(res *resolver.Resolution) (getResult, error) {
		if text, ok := resolver.BodyAs[string](res); ok {
			return getResult{status: res.StatusCode, ok: true, text: text}, nil
		}
		body, _ := resolver.BodyAs[[]byte](res)
		return getResult{status: res.StatusCode, body: body}, nil
	},
}

// runGet sends a GET relative to the base URL and prints the decoded body
func (a *app) runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	base := fs.String("base", a.cfg.HTTP.BaseURL, "Base URL requests are resolved against")
	accept := fs.String("accept", domain.MimeAny, "Accept header value")
	if err := fs.Parse(args); err != nil {
		return exitError(2)
	}
	if fs.NArg() != 1 || *base == "" {
		fmt.Fprintln(os.Stderr, "usage: fetchkit get [-base url] <path>")
		return exitError(2)
	}

	d, err := dispatcher.New(*base, a.transport, nil, a.logger.Named("dispatcher"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := domain.Request{
		Method:  domain.MethodGet,
		Path:    fs.Arg(0),
		Headers: []domain.NameValue{domain.Header("Accept", *accept)},
	}
	result, err := dispatcher.Send(ctx, d, req, getDescriptor)
	if err != nil {
		return err
	}

	if !result.ok {
		fmt.Fprintf(os.Stderr, "HTTP %d\n", result.status)
		os.Stdout.Write(result.body)
		return exitError(1)
	}
	fmt.Print(result.text)
	return nil
}

// runDownload downloads each url/destination pair concurrently. The first
// interrupt stops every transfer.
func (a *app) runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	size := fs.Int64("size", 0, "Expected size in bytes, applied to every download")
	if err := fs.Parse(args); err != nil {
		return exitError(2)
	}
	pairs := fs.Args()
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		fmt.Fprintln(os.Stderr, "usage: fetchkit download [-size n] <url> <dest> [<url> <dest>]")
		return exitError(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.serveMetrics(ctx)

	housekeeping := a.newMaintenance()
	housekeeping.RunOnce()
	go func() {
		if err := housekeeping.Start(ctx); err != nil {
			a.logger.Warn("failed to start maintenance", zap.Error(err))
		}
	}()
	defer housekeeping.Stop()

	manager := a.newManager()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		select {
		case <-signals:
			a.logger.Info("interrupted, stopping downloads")
			manager.StopAll()
		case <-ctx.Done():
		}
	}()

	var g errgroup.Group
	for i := 0; i < len(pairs); i += 2 {
		url, dest := pairs[i], pairs[i+1]
		g.Go(func() error {
			return followDownload(manager.Start(url, dest, *size), url, dest)
		})
	}
	err := g.Wait()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	if werr := manager.Wait(waitCtx); werr != nil {
		a.logger.Warn("downloads did not wind down", zap.Error(werr))
	}
	return err
}

// followDownload prints progress until the stream settles
func followDownload(stream *downloader.Stream, url, dest string) error {
	sub := stream.Subscribe()
	for v := range sub.Updates() {
		fmt.Fprintf(os.Stderr, "%-9s %5.1f%%  %s\n", v.State, v.Progress*100, url)
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}
	if stream.Latest().State == domain.DownloadStopped {
		return fmt.Errorf("%s: %w", url, errStopped)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return err
	}
	kind := "unknown"
	if mt, err := mimetype.DetectFile(dest); err == nil {
		kind = mt.String()
	}
	fmt.Printf("%s -> %s (%s, %s)\n", url, dest, humanize.Bytes(uint64(info.Size())), kind)
	return nil
}

// runHistory prints journal entries and outcome totals
func (a *app) runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("n", 20, "Number of entries to show")
	url := fs.String("url", "", "Only show entries for this URL")
	if err := fs.Parse(args); err != nil {
		return exitError(2)
	}

	var entries []*port.JournalEntry
	var err error
	if *url != "" {
		entries, err = a.store.ByURL(*url)
	} else {
		entries, err = a.store.Recent(*limit)
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		line := fmt.Sprintf("%-14s %-9s %5.1f%%  %s -> %s",
			humanize.Time(e.FinishedAt), e.Outcome, e.Progress*100, e.URL, e.Destination)
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		fmt.Println(line)
	}

	counts, err := a.store.OutcomeCounts()
	if err != nil {
		return err
	}
	fmt.Printf("\ncompleted %s, stopped %s, failed %s\n",
		humanize.Comma(int64(counts[port.OutcomeCompleted])),
		humanize.Comma(int64(counts[port.OutcomeStopped])),
		humanize.Comma(int64(counts[port.OutcomeFailed])))
	return nil
}
