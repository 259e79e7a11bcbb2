package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/creativepipe/cap/pkg/config"
	"github.com/creativepipe/cap/pkg/httpserver"
	"github.com/creativepipe/cap/pkg/ratelimit"
)

var (
	limitsJSON     bool
	limitsDetailed bool
	limitsAddr     string
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the rate limiting status of every API",
	RunE:  runLimits,
}

var limitsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rate limiting status over HTTP",
	RunE:  runLimitsServe,
}

func init() {
	rootCmd.AddCommand(limitsCmd)
	limitsCmd.AddCommand(limitsServeCmd)

	limitsCmd.Flags().BoolVar(&limitsJSON, "json", false, "Output status as JSON")
	limitsCmd.Flags().BoolVar(&limitsDetailed, "detailed", false, "Include the configuration of each limiter")
	limitsServeCmd.Flags().StringVar(&limitsAddr, "addr", "", "Listen address (defaults to HTTP_ADDR)")
}

func runLimits(cmd *cobra.Command, args []string) error {
	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	snap := reg.Snapshot()

	if limitsJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	printSnapshot(cmd.OutOrStdout(), snap, limitsDetailed)
	return nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// printSnapshot renders a snapshot as a human-readable report, one block
// per resource in name order.
func printSnapshot(w io.Writer, snap ratelimit.Snapshot, detailed bool) {
	banner := strings.Repeat("=", 80)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "RATE LIMITING STATUS")
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "Rate Limiting Enabled: %s\n", yesNo(snap.Enabled))
	fmt.Fprintf(w, "Rate Limit Wait Mode: %s\n", yesNo(snap.WaitMode))
	fmt.Fprintln(w)

	if len(snap.Resources) == 0 {
		fmt.Fprintln(w, "No rate limiters configured.")
		return
	}

	names := make([]string, 0, len(snap.Resources))
	for name := range snap.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := snap.Resources[name]
		fmt.Fprintln(w, strings.ToUpper(name))
		fmt.Fprintln(w, strings.Repeat("-", 40))

		switch {
		case st.TokenBucket != nil:
			fmt.Fprintln(w, "  Type: Token Bucket")
			fmt.Fprintf(w, "  Tokens Available: %.1f\n", st.TokenBucket.Tokens)
			fmt.Fprintf(w, "  Capacity: %d\n", st.TokenBucket.Capacity)
			fmt.Fprintf(w, "  Refill Rate: %.2f tokens/sec\n", st.TokenBucket.RefillRate)
		case st.SlidingWindow != nil:
			fmt.Fprintln(w, "  Type: Sliding Window")
			fmt.Fprintf(w, "  Requests in Window: %d\n", st.SlidingWindow.InWindow)
			fmt.Fprintf(w, "  Max Requests: %d\n", st.MaxRequests)
			fmt.Fprintf(w, "  Time Window: %g seconds\n", st.TimeWindowSeconds)
		case st.FixedWindow != nil:
			fmt.Fprintln(w, "  Type: Fixed Window")
			fmt.Fprintf(w, "  Request Count: %d\n", st.FixedWindow.Count)
			fmt.Fprintf(w, "  Max Requests: %d\n", st.MaxRequests)
			fmt.Fprintf(w, "  Time Window: %g seconds\n", st.TimeWindowSeconds)
			fmt.Fprintf(w, "  Window Resets In: %.1f seconds\n", st.FixedWindow.ResetIn)
		}

		if detailed {
			fmt.Fprintln(w, "  Configuration:")
			fmt.Fprintf(w, "    Algorithm: %s\n", st.Algorithm)
			fmt.Fprintf(w, "    Max Requests: %d\n", st.MaxRequests)
			fmt.Fprintf(w, "    Time Window: %gs\n", st.TimeWindowSeconds)
			if st.BurstCapacity > 0 {
				fmt.Fprintf(w, "    Burst Capacity: %d\n", st.BurstCapacity)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, banner)
}

func runLimitsServe(cmd *cobra.Command, args []string) error {
	reg, err := limitsRegistry()
	if err != nil {
		return err
	}
	// The status endpoint is itself a limited resource.
	if err := reg.Configure("status_api", ratelimit.Config{
		Algorithm:   ratelimit.FixedWindow,
		MaxRequests: 60,
		TimeWindow:  time.Minute,
	}); err != nil {
		return err
	}

	log := slog.Default()

	router := chi.NewRouter()
	router.Get("/healthz", httpserver.HealthHandler(log))
	router.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.Middleware(reg, "status_api"))
		r.Get("/limits", limitsSnapshotHandler(reg))
	})

	var cfg httpserver.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(cfg,
		httpserver.WithAddr(limitsAddr),
		httpserver.WithLogger(log),
	)
	return srv.Run(cmd.Context(), router)
}

func limitsSnapshotHandler(reg *ratelimit.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := json.MarshalIndent(reg.Snapshot(), "", "  ")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(out)
	}
}
