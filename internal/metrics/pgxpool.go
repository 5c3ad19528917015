package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the record database pool statistics as
// Prometheus gauges on reg.
func RegisterPgxPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	gauges := []struct {
		name, help string
		value      func(*pgxpool.Stat) float64
	}{
		{"swapd_record_db_acquired_conns", "Number of currently acquired connections in the record db pool",
			func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
		{"swapd_record_db_max_conns", "Maximum number of connections in the record db pool",
			func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
		{"swapd_record_db_total_conns", "Total number of connections in the record db pool",
			func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
		{"swapd_record_db_idle_conns", "Number of idle connections in the record db pool",
			func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
	}

	for _, g := range gauges {
		value := g.value
		err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, func() float64 {
			return value(pool.Stat())
		}))
		if err != nil {
			return err
		}
	}
	return nil
}
