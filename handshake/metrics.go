/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package handshake

import "github.com/hyperledger/fabric-lib-go/common/metrics"

var (
	sharesSentCounterOpts = metrics.CounterOpts{
		Namespace:    "keyexchange",
		Name:         "key_shares_sent",
		Help:         "The number of key shares written into outgoing key_share extensions.",
		StatsdFormat: "%{#fqname}",
	}

	sharesReceivedCounterOpts = metrics.CounterOpts{
		Namespace:    "keyexchange",
		Name:         "key_shares_received",
		Help:         "The number of key shares accepted from incoming key_share extensions.",
		StatsdFormat: "%{#fqname}",
	}

	sharesSkippedCounterOpts = metrics.CounterOpts{
		Namespace:    "keyexchange",
		Name:         "key_shares_skipped",
		Help:         "The number of key shares ignored by the lenient receive path, labeled with the reason.",
		LabelNames:   []string{"reason"},
		StatsdFormat: "%{#fqname}.%{reason}",
	}

	recvFailuresCounterOpts = metrics.CounterOpts{
		Namespace:    "keyexchange",
		Name:         "recv_failures",
		Help:         "The number of structurally invalid key_share extensions received.",
		StatsdFormat: "%{#fqname}",
	}
)

// Skip reasons recorded by the lenient key_share receive path.
const (
	skipReasonUnknownGroup  = "unknown_group"
	skipReasonDuplicate     = "duplicate"
	skipReasonSizeMismatch  = "size_mismatch"
	skipReasonPointRejected = "point_rejected"
)

// Metrics counts the key share traffic of one extension handler.
type Metrics struct {
	SharesSent     metrics.Counter
	SharesReceived metrics.Counter
	SharesSkipped  metrics.Counter
	RecvFailures   metrics.Counter
}

// NewMetrics builds the key exchange metrics with the supplied provider.
func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		SharesSent:     p.NewCounter(sharesSentCounterOpts),
		SharesReceived: p.NewCounter(sharesReceivedCounterOpts),
		SharesSkipped:  p.NewCounter(sharesSkippedCounterOpts),
		RecvFailures:   p.NewCounter(recvFailuresCounterOpts),
	}
}
