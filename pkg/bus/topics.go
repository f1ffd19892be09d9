package bus

// Topic names for the durable bus (spec §6).
const (
	TopicTrades = "stock_trades_realtime"
	TopicBars   = "stock_bars_staging"
)

// Consumer groups for the Stream Processor's two independent loops.
const (
	GroupTradesPersist = "trades-persist"
	GroupBarsPersist   = "bars-persist"
)
