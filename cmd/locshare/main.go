// Command locshare shares a device's position with a report. It reads
// "lat,lng" lines from stdin or -file and pushes the newest one every
// -interval until interrupted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/sharing"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "API base URL")
	reportID := flag.String("report", "", "Report ID to share location for")
	token := flag.String("token", os.Getenv("SUROKHA_SESSION"), "Session token (defaults to $SUROKHA_SESSION)")
	filePath := flag.String("file", "", "Read positions from file instead of stdin")
	interval := flag.Duration("interval", sharing.DefaultInterval, "Push interval")
	flag.Parse()

	logging.Setup()

	if *reportID == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "usage: locshare -report <id> -token <session> [-file positions.txt]")
		os.Exit(2)
	}

	var src io.Reader = os.Stdin
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			slog.Error("failed to open positions file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fixes := make(chan sharing.Fix)
	go readFixes(ctx, src, fixes)

	session := sharing.New(fixes, sharing.NewHTTPPusher(strings.TrimRight(*apiURL, "/"), *reportID, *token),
		sharing.WithInterval(*interval),
		sharing.OnError(func(err error) { slog.Warn("location push failed", "report_id", *reportID, "error", err.Error()) }),
	)
	if err := session.Start(ctx); err != nil {
		slog.Error("failed to start sharing", "error", err)
		os.Exit(1)
	}
	slog.Info("sharing location", "report_id", *reportID, "interval", interval.String())

	<-ctx.Done()
	if err := session.Stop(); err != nil {
		slog.Error("sharing stopped with error", "error", err)
	}
	slog.Info("sharing stopped", "report_id", *reportID)
}

// readFixes forwards every valid line to out and closes it at EOF.
func readFixes(ctx context.Context, r io.Reader, out chan<- sharing.Fix) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fix, err := parseFix(scanner.Text())
		if err != nil {
			slog.Warn("skipping position", "line", scanner.Text(), "error", err.Error())
			continue
		}
		select {
		case out <- fix:
		case <-ctx.Done():
			return
		}
	}
}

func parseFix(line string) (sharing.Fix, error) {
	latStr, lngStr, ok := strings.Cut(strings.TrimSpace(line), ",")
	if !ok {
		return sharing.Fix{}, fmt.Errorf("want lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return sharing.Fix{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return sharing.Fix{}, fmt.Errorf("longitude: %w", err)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return sharing.Fix{}, fmt.Errorf("coordinates out of range")
	}
	return sharing.Fix{Latitude: lat, Longitude: lng}, nil
}
