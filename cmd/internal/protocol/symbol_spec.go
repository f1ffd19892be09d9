package protocol

import (
	"encoding/json"
	"fmt"
)

// SubscribeCommand is a subscribe/unsubscribe payload: either a bare
// ticker string or an object carrying one.
type SubscribeCommand struct {
	Ticker string
}

func (c *SubscribeCommand) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		c.Ticker = plain
		return nil
	}

	var obj struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("payload must be a string or {symbol}: %w", err)
	}
	c.Ticker = obj.Symbol
	return nil
}

func (c SubscribeCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Ticker)
}
