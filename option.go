package snet

import (
	"time"

	"github.com/singnet/snet-client-go/blockchain"
	"github.com/singnet/snet-client-go/funding"
	"github.com/singnet/snet-client-go/logger"
	"github.com/singnet/snet-client-go/metrics"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

// WithFundingStrategy replaces the default non-spending strategy.
func WithFundingStrategy(s funding.Strategy) Option {
	return func(c *Client) {
		c.strategy = s
	}
}

// WithConfirm installs a gate shown every transaction before broadcast.
func WithConfirm(f blockchain.ConfirmFunc) Option {
	return func(c *Client) {
		c.confirm = f
	}
}
