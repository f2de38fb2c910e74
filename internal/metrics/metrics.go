// Package metrics exposes Prometheus collectors for the settlement engine.
// Everything registers on the default registry; main mounts promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "trades_total",
		Help:      "Executed trades by side and pricing curve.",
	}, []string{"side", "curve"})

	tradeShares = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "trade_shares_total",
		Help:      "Total shares traded by side and pricing curve.",
	}, []string{"side", "curve"})

	tradeVolumeLamports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "trade_volume_lamports_total",
		Help:      "Gross lamports moved by trades, by side and pricing curve.",
	}, []string{"side", "curve"})

	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "market_settlements_total",
		Help:      "Terminal market transitions by kind.",
	}, []string{"kind"})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "claims_total",
		Help:      "Successful claims by type.",
	}, []string{"type"})

	claimVolumeLamports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "claim_volume_lamports_total",
		Help:      "Lamports paid out through claims, by type.",
	}, []string{"type"})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "settlement",
		Name:      "ws_clients",
		Help:      "Connected websocket clients.",
	})
)

// ObserveTrade records a committed trade.
func ObserveTrade(side, curve string, shares, amount int64) {
	tradesTotal.WithLabelValues(side, curve).Inc()
	tradeShares.WithLabelValues(side, curve).Add(float64(shares))
	tradeVolumeLamports.WithLabelValues(side, curve).Add(float64(amount))
}

// ObserveSettlement records a terminal market transition.
func ObserveSettlement(kind string) {
	settlementsTotal.WithLabelValues(kind).Inc()
}

// ObserveClaim records a successful claim payout.
func ObserveClaim(claimType string, amount int64) {
	claimsTotal.WithLabelValues(claimType).Inc()
	claimVolumeLamports.WithLabelValues(claimType).Add(float64(amount))
}

// WSClientConnected adjusts the connected-clients gauge.
func WSClientConnected()    { wsClients.Inc() }
func WSClientDisconnected() { wsClients.Dec() }
