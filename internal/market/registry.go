package market

import (
	"fmt"
	"sort"
)

// SymbolSpec 描述一个货币对的静态属性。
type SymbolSpec struct {
	Symbol        string  `json:"symbol"`
	BasePrice     float64 `json:"base_price"`
	TypicalSpread float64 `json:"typical_spread"` // 相对 mid 的比例
	Decimals      int     `json:"decimals"`
	LotStep       float64 `json:"lot_step"`
}

// Registry 是启动时装载一次的静态 symbol 注册表。
type Registry struct {
	specs map[string]SymbolSpec
	order []string
}

// NewRegistry 构建注册表；symbol 为空或重复、base price 非正都会报错。
func NewRegistry(specs []SymbolSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]SymbolSpec, len(specs))}
	for _, s := range specs {
		if s.Symbol == "" {
			return nil, fmt.Errorf("registry: empty symbol")
		}
		if s.BasePrice <= 0 {
			return nil, fmt.Errorf("registry: %s base price must be positive, got %v", s.Symbol, s.BasePrice)
		}
		if _, dup := r.specs[s.Symbol]; dup {
			return nil, fmt.Errorf("registry: duplicate symbol %s", s.Symbol)
		}
		if s.TypicalSpread <= 0 {
			s.TypicalSpread = 0.0002
		}
		if s.Decimals <= 0 {
			s.Decimals = 5
		}
		if s.LotStep <= 0 {
			s.LotStep = 1
		}
		r.specs[s.Symbol] = s
		r.order = append(r.order, s.Symbol)
	}
	if len(r.specs) == 0 {
		return nil, fmt.Errorf("registry: no symbols configured")
	}
	return r, nil
}

// Lookup 按 symbol 查找，未注册返回 ErrUnknownSymbol。
func (r *Registry) Lookup(symbol string) (SymbolSpec, error) {
	spec, ok := r.specs[symbol]
	if !ok {
		return SymbolSpec{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return spec, nil
}

// Has 报告 symbol 是否已注册。
func (r *Registry) Has(symbol string) bool {
	_, ok := r.specs[symbol]
	return ok
}

// Symbols 返回配置顺序的 symbol 列表副本。
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultSpecs 返回内置的主要货币对（来源于模拟行情的基准价）。
func DefaultSpecs() []SymbolSpec {
	specs := []SymbolSpec{
		{Symbol: "EURUSD", BasePrice: 1.0850, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "GBPUSD", BasePrice: 1.2650, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDJPY", BasePrice: 150.25, TypicalSpread: 0.0002, Decimals: 3, LotStep: 1},
		{Symbol: "AUDUSD", BasePrice: 0.6420, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDCAD", BasePrice: 1.3750, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
		{Symbol: "USDCHF", BasePrice: 0.8890, TypicalSpread: 0.0002, Decimals: 5, LotStep: 1},
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Symbol < specs[j].Symbol })
	return specs
}
