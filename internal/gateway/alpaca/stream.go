package alpaca

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"

	"crossbot/internal/gateway"
)

// startTradeStream opens the stocks stream and forwards each trade as a
// last-price tick. Connect must have been called first; the stream
// shares the gateway's run context.
func (g *Gateway) startTradeStream(ctx context.Context, symbol string) error {
	if ctx == nil {
		return fmt.Errorf("gateway not connected")
	}
	client := stream.NewStocksClient(
		parseFeed(g.cfg.Feed),
		stream.WithCredentials(g.cfg.APIKey, g.cfg.APISecret),
	)

	// This SDK version requires Connect before subscribing.
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}
	if err := client.SubscribeToTrades(func(trade stream.Trade) {
		g.pub.Publish(gateway.TickEventOf(gateway.TickLast, trade.Price))
	}, symbol); err != nil {
		return fmt.Errorf("subscribe to trades: %w", err)
	}

	g.log.Info().Str("symbol", symbol).Str("feed", g.cfg.Feed).Msg("trade stream subscribed")
	return nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
