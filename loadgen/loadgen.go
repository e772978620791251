// Package loadgen drives synthetic traffic at a running API. Every request
// carries the synthetic header so votes land in the synthetic tally.
package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"Scrumble/utils/httpctx"
)

const (
	ModeMatchup = "matchup"
	ModeVote    = "vote"
)

const userAgent = "ScrumbleSyntheticLoad/1.0"

type Options struct {
	Base              string
	Mode              string
	Duration          time.Duration
	RPS               float64
	MatchupID         string
	FingerprintPrefix string
	RandomSide        bool

	Client *http.Client
	Logger *slog.Logger
	// Now stamps fingerprints; defaults to time.Now.
	Now func() time.Time
}

type Report struct {
	Base      string        `json:"base"`
	Mode      string        `json:"mode"`
	Total     int           `json:"total"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ResolveBase prefers flag, then SCRUMBLE_API_BASE, and strips a trailing slash.
func ResolveBase(flag string) string {
	base := strings.TrimSpace(flag)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("SCRUMBLE_API_BASE"))
	}
	return strings.TrimSuffix(base, "/")
}

// Run sends Duration*RPS requests paced at RPS and tallies the outcomes.
// Transport failures count as failures rather than aborting the run.
func Run(ctx context.Context, opts Options) (Report, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.Base), "/")
	if base == "" {
		return Report{}, errors.New("missing API base: set --base or SCRUMBLE_API_BASE")
	}
	if opts.Mode == "" {
		opts.Mode = ModeMatchup
	}
	if opts.Mode != ModeMatchup && opts.Mode != ModeVote {
		return Report{}, fmt.Errorf("unknown mode %q", opts.Mode)
	}
	total := int(opts.Duration.Seconds() * opts.RPS)
	if total <= 0 {
		return Report{}, errors.New("duration and rps must yield at least one request")
	}
	if opts.FingerprintPrefix == "" {
		opts.FingerprintPrefix = "synthetic"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &generator{base: base, client: opts.Client}

	var matchupID string
	if opts.Mode == ModeVote {
		id, err := g.pickMatchup(ctx, opts.MatchupID)
		if err != nil {
			return Report{}, err
		}
		matchupID = id
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RPS), 1)
	report := Report{Base: base, Mode: opts.Mode, Total: total}
	start := time.Now()

	for i := 0; i < total; i++ {
		if err := limiter.Wait(ctx); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		var status int
		var err error
		if opts.Mode == ModeMatchup {
			status, _, err = g.do(ctx, http.MethodGet, "/matchup", nil)
		} else {
			side := "left"
			if opts.RandomSide {
				if rand.Intn(2) == 1 {
					side = "right"
				}
			} else if i%2 == 1 {
				side = "right"
			}
			fingerprint := fmt.Sprintf("%s-%d-%d", opts.FingerprintPrefix, opts.Now().UnixMilli(), i)
			status, _, err = g.do(ctx, http.MethodPost, "/vote", map[string]string{
				"matchup_id":  matchupID,
				"side":        side,
				"fingerprint": fingerprint,
			})
		}

		if err == nil && status >= 200 && status < 300 {
			report.Successes++
			continue
		}
		report.Failures++
		opts.Logger.Debug("synthetic request failed", "mode", opts.Mode, "status", status, "error", err)
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

type generator struct {
	base   string
	client *http.Client
}

func (g *generator) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(httpctx.SyntheticHeader, "1")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

// pickMatchup returns want when it is listed, or the first listed matchup.
func (g *generator) pickMatchup(ctx context.Context, want string) (string, error) {
	status, raw, err := g.do(ctx, http.MethodGet, "/matchup", nil)
	if err != nil {
		return "", fmt.Errorf("GET /matchup: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("GET /matchup failed with %d: %s", status, raw)
	}

	var listing struct {
		Matchups []struct {
			Matchup struct {
				ID string `json:"id"`
			} `json:"matchup"`
		} `json:"matchups"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return "", fmt.Errorf("decode /matchup: %w", err)
	}
	for _, p := range listing.Matchups {
		if want == "" || p.Matchup.ID == want {
			if p.Matchup.ID == "" {
				return "", errors.New("matchup id missing from /matchup response")
			}
			return p.Matchup.ID, nil
		}
	}
	return "", errors.New("matchup not found for vote mode")
}
