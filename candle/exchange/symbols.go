package exchange

import (
	"context"
	"fmt"
	"net/url"

	"github.com/candlepulse/candle-pusher/candle/types"
)

// FetchSymbols retrieves the exchange's instrument catalog, applies the
// eligibility predicate and returns the surviving pairs in canonical
// "BASE-QUOTE" form.
func (c *Client) FetchSymbols(ctx context.Context) ([]string, error) {
	query := url.Values{}
	for k, v := range c.desc.InfoQuery {
		query.Set(k, v)
	}

	body, err := c.get(ctx, c.desc.InfoURL(), query)
	if err != nil {
		return nil, &types.LookupError{Source: c.desc.Name, Err: err}
	}

	records, err := walkToList(body, c.desc.InfoPath)
	if err != nil {
		return nil, &types.LookupError{Source: c.desc.Name, Err: err}
	}

	symbols := make([]string, 0, len(records))
	for i, raw := range records {
		rec, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &types.LookupError{
				Source: c.desc.Name,
				Err:    fmt.Errorf("catalog record %d: unexpected shape %T", i, raw),
			}
		}
		if c.desc.EligibleSymbol != nil && !c.desc.EligibleSymbol(rec) {
			continue
		}
		base, _ := rec[c.desc.BaseField].(string)
		quote, _ := rec[c.desc.QuoteField].(string)
		if base == "" || quote == "" {
			continue
		}
		symbols = append(symbols, base+"-"+quote)
	}
	return symbols, nil
}
