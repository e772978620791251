// Package metrics records vote and lifecycle counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink receives domain events worth counting. Implementations must be safe
// for concurrent use.
type Sink interface {
	VoteCast(side string, synthetic bool)
	VoteRejected(code string)
	VoteEventDropped()
	MatchupsArchived(n int)
}

type Nop struct{}

func (Nop) VoteCast(string, bool) {}
func (Nop) VoteRejected(string) {}
func (Nop) VoteEventDropped() {}
func (Nop) MatchupsArchived(int) {}

type Prometheus struct {
	votes    *prometheus.CounterVec
	rejected *prometheus.CounterVec
	dropped  prometheus.Counter
	archived prometheus.Counter
}

// NewPrometheus registers the scrumble_* collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrumble_votes_total",
			Help: "Votes counted, by side and whether they were synthetic.",
		}, []string{"side", "synthetic"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrumble_votes_rejected_total",
			Help: "Votes refused, by error code.",
		}, []string{"code"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scrumble_vote_events_dropped_total",
			Help: "Votes counted whose dedup event could not be written.",
		}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scrumble_matchups_archived_total",
			Help: "Matchups deactivated after their end time passed.",
		}),
	}
	for _, c := range []prometheus.Collector{p.votes, p.rejected, p.dropped, p.archived} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) VoteCast(side string, synthetic bool) {
	label := "false"
	if synthetic {
		label = "true"
	}
	p.votes.WithLabelValues(side, label).Inc()
}

func (p *Prometheus) VoteRejected(code string) {
	p.rejected.WithLabelValues(code).Inc()
}

func (p *Prometheus) VoteEventDropped() {
	p.dropped.Inc()
}

func (p *Prometheus) MatchupsArchived(n int) {
	if n > 0 {
		p.archived.Add(float64(n))
	}
}
