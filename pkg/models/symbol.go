package models

// Symbol is the lookup-table row mapping a surrogate id to a canonical,
// upper-case ticker. Created lazily by the Stream Processor on first
// observation; never mutated or deleted by the core.
type Symbol struct {
	SymbolID int64
	Ticker   string
	Name     string
	Exchange string
}
