package engine

import "fxsim/internal/market"

// State 是引擎状态机：Stopped → Running → Halted{reason} → Stopped。
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StateHalted  State = "HALTED"
)

// StateSnapshot 是对外暴露的只读状态视图。
type StateSnapshot struct {
	State         State               `json:"state"`
	Running       bool                `json:"running"`
	CurrentDate   string              `json:"current_date"`
	DailyNotional float64             `json:"daily_notional"`
	HaltReason    market.RejectReason `json:"halt_reason,omitempty"`
}
