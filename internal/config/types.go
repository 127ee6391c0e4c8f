package config

// Config 是 fxsim 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Symbols  []SymbolConfig `mapstructure:"symbols"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Bus      BusConfig      `mapstructure:"bus"`
	Store    StoreConfig    `mapstructure:"store"`
	Backtest BacktestConfig `mapstructure:"backtest"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	LogPath     string `mapstructure:"log_path"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// SymbolConfig 对应注册表里的一个货币对。
type SymbolConfig struct {
	Symbol        string  `mapstructure:"symbol"`
	BasePrice     float64 `mapstructure:"base_price"`
	TypicalSpread float64 `mapstructure:"typical_spread"`
	Decimals      int     `mapstructure:"decimals"`
	LotStep       float64 `mapstructure:"lot_step"`
}

// TradingConfig 控制风控上限与评估节奏。
type TradingConfig struct {
	DailyCapNotional     float64 `mapstructure:"daily_cap_notional"`
	BasePositionNotional float64 `mapstructure:"base_position_notional"`
	MinNotional          float64 `mapstructure:"min_notional"`
	MinConfidence        float64 `mapstructure:"min_confidence"`
	PerTradeCapFraction  float64 `mapstructure:"per_trade_cap_fraction"`
	PerSymbolCapFraction float64 `mapstructure:"per_symbol_cap_fraction"`
	EvaluationIntervalMS int     `mapstructure:"evaluation_interval_ms"`
	PersistTimeoutMS     int     `mapstructure:"persist_timeout_ms"`
}

// StrategyConfig 是指标与策略参数。
type StrategyConfig struct {
	SMAShort      int     `mapstructure:"sma_short"`
	SMALong       int     `mapstructure:"sma_long"`
	RSIPeriod     int     `mapstructure:"rsi_period"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	BBPeriod      int     `mapstructure:"bb_period"`
	BBStd         float64 `mapstructure:"bb_std"`
}

// FeedConfig 控制模拟行情源。
type FeedConfig struct {
	TickIntervalMinMS int     `mapstructure:"tick_interval_min_ms"`
	TickIntervalMaxMS int     `mapstructure:"tick_interval_max_ms"`
	VolatilitySigma   float64 `mapstructure:"volatility_sigma"`
	Seed              int64   `mapstructure:"seed"`
}

type BusConfig struct {
	HistoryCapacity  int `mapstructure:"history_capacity"`
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type BacktestConfig struct {
	ResultsPath string `mapstructure:"results_path"`
}
