package config

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultMetricsAddr = ":9992"

	defaultDailyCapNotional     = 10_000_000.0
	defaultBasePositionNotional = 10_000.0
	defaultMinNotional          = 1_000.0
	defaultMinConfidence        = 0.6
	defaultPerTradeCapFraction  = 0.10
	defaultPerSymbolCapFraction = 0.20
	defaultEvaluationIntervalMS = 5000
	defaultPersistTimeoutMS     = 2000

	defaultSMAShort      = 10
	defaultSMALong       = 50
	defaultRSIPeriod     = 14
	defaultRSIOverbought = 70.0
	defaultRSIOversold   = 30.0
	defaultBBPeriod      = 20
	defaultBBStd         = 2.0

	defaultTickIntervalMinMS = 1000
	defaultTickIntervalMaxMS = 3000
	defaultVolatilitySigma   = 0.001

	defaultHistoryCapacity  = 200
	defaultSubscriberBuffer = 64

	defaultStorePath    = "data/fxsim.db"
	defaultBacktestPath = "data/backtests.db"
)

// applyDefaults 为缺省或非法的字段填入默认值。
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = defaultMetricsAddr
	}

	t := &c.Trading
	if t.DailyCapNotional <= 0 {
		t.DailyCapNotional = defaultDailyCapNotional
	}
	if t.BasePositionNotional <= 0 {
		t.BasePositionNotional = defaultBasePositionNotional
	}
	if t.MinNotional <= 0 {
		t.MinNotional = defaultMinNotional
	}
	if t.MinConfidence <= 0 {
		t.MinConfidence = defaultMinConfidence
	}
	if t.PerTradeCapFraction <= 0 {
		t.PerTradeCapFraction = defaultPerTradeCapFraction
	}
	if t.PerSymbolCapFraction <= 0 {
		t.PerSymbolCapFraction = defaultPerSymbolCapFraction
	}
	if t.EvaluationIntervalMS <= 0 {
		t.EvaluationIntervalMS = defaultEvaluationIntervalMS
	}
	if t.PersistTimeoutMS <= 0 {
		t.PersistTimeoutMS = defaultPersistTimeoutMS
	}

	s := &c.Strategy
	if s.SMAShort <= 0 {
		s.SMAShort = defaultSMAShort
	}
	if s.SMALong <= 0 {
		s.SMALong = defaultSMALong
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = defaultRSIPeriod
	}
	if s.RSIOverbought <= 0 {
		s.RSIOverbought = defaultRSIOverbought
	}
	if s.RSIOversold <= 0 {
		s.RSIOversold = defaultRSIOversold
	}
	if s.BBPeriod <= 0 {
		s.BBPeriod = defaultBBPeriod
	}
	if s.BBStd <= 0 {
		s.BBStd = defaultBBStd
	}

	f := &c.Feed
	if f.TickIntervalMinMS <= 0 {
		f.TickIntervalMinMS = defaultTickIntervalMinMS
	}
	if f.TickIntervalMaxMS <= 0 {
		f.TickIntervalMaxMS = defaultTickIntervalMaxMS
	}
	if f.VolatilitySigma <= 0 {
		f.VolatilitySigma = defaultVolatilitySigma
	}

	b := &c.Bus
	if b.HistoryCapacity <= 0 {
		b.HistoryCapacity = defaultHistoryCapacity
	}
	if b.SubscriberBuffer <= 0 {
		b.SubscriberBuffer = defaultSubscriberBuffer
	}

	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Backtest.ResultsPath == "" {
		c.Backtest.ResultsPath = defaultBacktestPath
	}
}
